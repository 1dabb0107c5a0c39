// Package workflow runs agents as a strict sequential pipeline.
//
// The task is the first agent's input; each later agent receives exactly the
// previous agent's output, and the last output is the workflow's output. The
// first failure stops the pipeline and is reported as *Error together with the
// trace of the steps that completed before it.
package workflow
