package mocks

import (
	"context"

	geo "github.com/sells-group/panowalk/internal/geo"
	mock "github.com/stretchr/testify/mock"
)

// MockDirections is a mock type for the Directions interface.
type MockDirections struct {
	mock.Mock
}

// Route provides a mock function with given fields: ctx, from, to
func (_m *MockDirections) Route(ctx context.Context, from geo.Coordinate, to geo.Coordinate) ([]geo.Coordinate, error) {
	ret := _m.Called(ctx, from, to)

	if len(ret) == 0 {
		panic("no return value specified for Route")
	}

	var r0 []geo.Coordinate
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, geo.Coordinate, geo.Coordinate) ([]geo.Coordinate, error)); ok {
		return rf(ctx, from, to)
	}
	if rf, ok := ret.Get(0).(func(context.Context, geo.Coordinate, geo.Coordinate) []geo.Coordinate); ok {
		r0 = rf(ctx, from, to)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]geo.Coordinate)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, geo.Coordinate, geo.Coordinate) error); ok {
		r1 = rf(ctx, from, to)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Close provides a mock function with no fields
func (_m *MockDirections) Close() error {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Close")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockDirections creates a new instance of MockDirections.
func NewMockDirections(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockDirections {
	mock := &MockDirections{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
