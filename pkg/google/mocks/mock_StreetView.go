// Package mocks provides test doubles for the google clients.
package mocks

import (
	"context"
	"io"

	geo "github.com/sells-group/panowalk/internal/geo"
	model "github.com/sells-group/panowalk/internal/model"
	google "github.com/sells-group/panowalk/pkg/google"
	mock "github.com/stretchr/testify/mock"
)

// MockStreetView is a mock type for the StreetView interface.
type MockStreetView struct {
	mock.Mock
}

// Metadata provides a mock function with given fields: ctx, loc, heading
func (_m *MockStreetView) Metadata(ctx context.Context, loc geo.Coordinate, heading float64) (*model.Panorama, error) {
	ret := _m.Called(ctx, loc, heading)

	if len(ret) == 0 {
		panic("no return value specified for Metadata")
	}

	var r0 *model.Panorama
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, geo.Coordinate, float64) (*model.Panorama, error)); ok {
		return rf(ctx, loc, heading)
	}
	if rf, ok := ret.Get(0).(func(context.Context, geo.Coordinate, float64) *model.Panorama); ok {
		r0 = rf(ctx, loc, heading)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Panorama)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, geo.Coordinate, float64) error); ok {
		r1 = rf(ctx, loc, heading)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Image provides a mock function with given fields: ctx, req
func (_m *MockStreetView) Image(ctx context.Context, req google.ImageRequest) (io.ReadCloser, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Image")
	}

	var r0 io.ReadCloser
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, google.ImageRequest) (io.ReadCloser, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, google.ImageRequest) io.ReadCloser); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(io.ReadCloser)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, google.ImageRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockStreetView creates a new instance of MockStreetView.
func NewMockStreetView(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStreetView {
	mock := &MockStreetView{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
