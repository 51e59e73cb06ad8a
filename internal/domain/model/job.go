package model

// Job is one subject of an asynchronous batch waiting to be classified.
type Job struct {
	BatchID string
	Index   int // position of the subject within its batch
	Subject string
	Sample  Sample
}
