// Package mocks holds testify mocks and fakes for the ports package.
package mocks

import "github.com/stretchr/testify/mock"

type testingT interface {
	mock.TestingT
	Cleanup(func())
}
