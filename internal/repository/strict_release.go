//go:build !debug

package repository

const strictDefault = false
