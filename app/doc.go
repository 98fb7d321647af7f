// Package app runs the sessions of a tiling run.
//
// A Driver walks every selected session through a fixed life cycle:
//
//	Idle -> SessionSetup -> Running -> SessionTeardown -> Success | Failed
//	                                                   \-> Done (interrupt)
//
// Each session gets a fresh chain from a StageFactory. Teardown always
// runs once setup has succeeded, whatever happened while iterating, and a
// failed session never stops the run.
package app
