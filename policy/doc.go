// Package policy provides optional declarative rules that decide which
// operations need a human decision before they may complete - for example
// requiring approval only above a volume threshold.
package policy
