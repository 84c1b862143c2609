package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	httpapi "hostelcore/internal/adapters/http"
	"hostelcore/internal/adapters/roster"
	"hostelcore/internal/allocation"
	"hostelcore/internal/blob"
	"hostelcore/internal/core"
	"hostelcore/internal/jobs"
)

const token = "t0ken"

func newServer(t *testing.T) *Client {
	t.Helper()
	svc := core.NewInMemoryService(nil, core.WithBcryptCost(bcrypt.MinCost), core.WithShuffler(allocation.NoShuffle))
	runner := jobs.NewRunner()
	worker := roster.NewWorker(svc, blob.NewMemory())
	worker.Start()
	srv := httptest.NewServer(httpapi.NewRouter(httpapi.Config{
		Service:    svc,
		Jobs:       runner,
		Exports:    worker,
		AdminToken: token,
	}))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = worker.Stop(ctx)
		_ = runner.Stop(ctx)
	})
	return New(srv.URL, token, WithTimeout(5*time.Second), WithRetries(0))
}

func TestClientRoomsAndStudents(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	room, err := c.CreateRoom(ctx, "101", 2)
	require.NoError(t, err)
	assert.Equal(t, "101", room.RoomNumber)
	_, err = c.CreateRoom(ctx, "102", 2)
	require.NoError(t, err)

	reg, err := c.RegisterStudent(ctx, Registration{Name: "Asha", RollNumber: "R1", Year: 1, Email: "asha@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "101", reg.Student.RoomNumber)
	other, err := c.RegisterStudent(ctx, Registration{Name: "Bilal", RollNumber: "R2", Year: 1, Email: "bilal@example.com", RoomNumber: "102"})
	require.NoError(t, err)

	rooms, err := c.ListRooms(ctx, "")
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
	vacant, err := c.ListRooms(ctx, "vacant")
	require.NoError(t, err)
	assert.Len(t, vacant, 2)

	occupants, err := c.RoomStudents(ctx, "101")
	require.NoError(t, err)
	require.Len(t, occupants, 1)

	swapped, err := c.ExchangeRooms(ctx, reg.Student.ID, other.Student.ID)
	require.NoError(t, err)
	require.Len(t, swapped.Students, 2)
	assert.Equal(t, "102", swapped.Students[0].RoomNumber)

	moved, err := c.ChangeRoom(ctx, reg.Student.ID, "101")
	require.NoError(t, err)
	assert.Equal(t, "101", moved.Student.RoomNumber)

	name := "Asha K"
	updated, err := c.UpdateStudent(ctx, reg.Student.ID, StudentUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Student.Name)

	fetched, err := c.Student(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, name, fetched.Name)

	_, err = c.UnassignStudent(ctx, reg.Student.ID)
	require.NoError(t, err)
	alloc, err := c.AllocateRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, alloc.AllocatedCount)

	_, err = c.DeactivateStudent(ctx, "R2")
	require.NoError(t, err)
	inactive, err := c.ListStudents(ctx, false)
	require.NoError(t, err)
	assert.Len(t, inactive, 1)
	active, err := c.ListStudents(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	stats, err := c.OccupancyStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Rooms)
	assert.Equal(t, 1, stats.ActiveStudents)
}

func TestClientAPIErrors(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()

	_, err := c.Student(ctx, "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "student_not_found", apiErr.ErrorKind)
	assert.Contains(t, apiErr.Error(), "404")

	_, err = c.RegisterStudent(ctx, Registration{Name: "x"})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Errors, "email")

	unauth := New(c.http.BaseURL, "wrong", WithRetries(0))
	_, err = unauth.OccupancyStats(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestClientGenerationAndExports(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()

	gen, err := c.GenerateRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 468, gen.Count)

	res, err := c.GenerateStudents(ctx, 8, false)
	require.NoError(t, err)
	assert.Equal(t, 8, res.Count)

	queued, err := c.GenerateStudents(ctx, 4, true)
	require.NoError(t, err)
	require.NotEmpty(t, queued.JobID)
	require.Eventually(t, func() bool {
		job, err := c.Job(ctx, queued.JobID)
		return err == nil && job.Status == jobs.StatusSucceeded
	}, 5*time.Second, 20*time.Millisecond)

	record, err := c.ExportRoster(ctx, []string{"xlsx"}, "occupied")
	require.NoError(t, err)
	assert.Equal(t, core.RoomFilterOccupied, record.Filter)
	require.Eventually(t, func() bool {
		got, err := c.Export(ctx, record.ID)
		return err == nil && got.Status == roster.ExportStatusSucceeded
	}, 5*time.Second, 20*time.Millisecond)
}

func TestClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, "", WithRetries(0), WithHTTPClient(&http.Client{}))
	err := c.Health(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
