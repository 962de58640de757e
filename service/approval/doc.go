// Package approval records requests for human confirmation and the decisions
// made against them.  It is decoupled from the engine: a decision recorded
// here rewinds the paused operation and republishes it so that the engine
// resumes it with the decision attached.
package approval
