// Package mocks provides test doubles for the datalineage client.
package mocks

import (
	"context"

	datalineage "github.com/sells-group/lineage-cli/pkg/datalineage"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// CreateProcess provides a mock function with given fields: ctx, loc, p
func (_m *MockClient) CreateProcess(ctx context.Context, loc datalineage.Location, p datalineage.Process) (string, error) {
	ret := _m.Called(ctx, loc, p)

	if len(ret) == 0 {
		panic("no return value specified for CreateProcess")
	}

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, datalineage.Location, datalineage.Process) (string, error)); ok {
		return rf(ctx, loc, p)
	}
	if rf, ok := ret.Get(0).(func(context.Context, datalineage.Location, datalineage.Process) string); ok {
		r0 = rf(ctx, loc, p)
	} else {
		r0 = ret.Get(0).(string)
	}

	if rf, ok := ret.Get(1).(func(context.Context, datalineage.Location, datalineage.Process) error); ok {
		r1 = rf(ctx, loc, p)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// CreateRun provides a mock function with given fields: ctx, process, r
func (_m *MockClient) CreateRun(ctx context.Context, process string, r datalineage.Run) (string, error) {
	ret := _m.Called(ctx, process, r)

	if len(ret) == 0 {
		panic("no return value specified for CreateRun")
	}

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, datalineage.Run) (string, error)); ok {
		return rf(ctx, process, r)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, datalineage.Run) string); ok {
		r0 = rf(ctx, process, r)
	} else {
		r0 = ret.Get(0).(string)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, datalineage.Run) error); ok {
		r1 = rf(ctx, process, r)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// CreateLineageEvent provides a mock function with given fields: ctx, run, e
func (_m *MockClient) CreateLineageEvent(ctx context.Context, run string, e datalineage.Event) (string, error) {
	ret := _m.Called(ctx, run, e)

	if len(ret) == 0 {
		panic("no return value specified for CreateLineageEvent")
	}

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, datalineage.Event) (string, error)); ok {
		return rf(ctx, run, e)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, datalineage.Event) string); ok {
		r0 = rf(ctx, run, e)
	} else {
		r0 = ret.Get(0).(string)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, datalineage.Event) error); ok {
		r1 = rf(ctx, run, e)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// SearchLinks provides a mock function with given fields: ctx, loc, q
func (_m *MockClient) SearchLinks(ctx context.Context, loc datalineage.Location, q datalineage.LinkQuery) (*datalineage.SearchResult, error) {
	ret := _m.Called(ctx, loc, q)

	if len(ret) == 0 {
		panic("no return value specified for SearchLinks")
	}

	var r0 *datalineage.SearchResult
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, datalineage.Location, datalineage.LinkQuery) (*datalineage.SearchResult, error)); ok {
		return rf(ctx, loc, q)
	}
	if rf, ok := ret.Get(0).(func(context.Context, datalineage.Location, datalineage.LinkQuery) *datalineage.SearchResult); ok {
		r0 = rf(ctx, loc, q)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*datalineage.SearchResult)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, datalineage.Location, datalineage.LinkQuery) error); ok {
		r1 = rf(ctx, loc, q)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
