// Package services holds the OpenPDPA core: corpus fingerprinting, the index
// manager that rebuilds or reuses the vector collection, and the
// moderate, retrieve and generate stages of the query pipeline.
//
// Everything here talks to infrastructure through driven ports only.
package services
