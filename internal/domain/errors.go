package domain

import "errors"

// Question errors
var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrInvalidQuestion  = errors.New("invalid question")
)

// Evaluation errors
var (
	ErrInvalidHireSignal = errors.New("invalid hire signal")
)
