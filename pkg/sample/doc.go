// Package sample defines the bounded random value emitted over the serial
// line, its decimal text form and the helpers to draw and check it.
package sample
