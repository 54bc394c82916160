package roster

import "errors"

// Sentinel error kinds for this package.
var (
	ErrUnknownRound  = errors.New("unknown round")
	ErrInvalidPolicy = errors.New("invalid round policy")
)
