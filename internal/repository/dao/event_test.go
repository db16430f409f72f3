package dao

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("could not construct docker pool: %v", err)
	}

	if err = pool.Client.Ping(); err != nil {
		log.Fatalf("could not connect to docker: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=rollcall_test",
			"listen_addresses = '*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	dsn := fmt.Sprintf("postgres://postgres:postgres@%v/rollcall_test?sslmode=disable",
		resource.GetHostPort("5432/tcp"))

	if err = pool.Retry(func() error {
		testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return err
		}

		sqlDB, err := testDB.DB()
		if err != nil {
			return err
		}

		return sqlDB.Ping()
	}); err != nil {
		log.Fatalf("could not connect to postgres: %v", err)
	}

	if err = InitTables(testDB); err != nil {
		log.Fatalf("could not migrate tables: %v", err)
	}

	code := m.Run()

	if err = pool.Purge(resource); err != nil {
		log.Fatalf("could not purge postgres container: %v", err)
	}

	os.Exit(code)
}

func insertTestEvent(t *testing.T, code string) Event {
	t.Helper()

	d := NewEventDAO(testDB)
	event, err := d.Insert(context.Background(), Event{
		Code:         code,
		Name:         "Autumn Assembly",
		Participants: []string{"S1", "S2", "S3"},
		AllowSameDay: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		testDB.Where("code = ?", code).Delete(&Event{})
	})

	return event
}

func TestEventDAO_Insert(t *testing.T) {
	event := insertTestEvent(t, "insert01")

	assert.NotZero(t, event.ID)
	assert.NotZero(t, event.CreatedAt)
}

func TestEventDAO_Insert_DuplicateCode(t *testing.T) {
	insertTestEvent(t, "dupcode1")

	d := NewEventDAO(testDB)
	_, err := d.Insert(context.Background(), Event{Code: "dupcode1", Name: "Other"})

	assert.ErrorIs(t, err, ErrEventCodeExists)
}

func TestEventDAO_FindByCode(t *testing.T) {
	insertTestEvent(t, "findme01")

	d := NewEventDAO(testDB)

	found, err := d.FindByCode(context.Background(), "findme01")
	require.NoError(t, err)
	assert.Equal(t, "Autumn Assembly", found.Name)
	assert.Equal(t, []string{"S1", "S2", "S3"}, found.Participants)
	assert.True(t, found.AllowSameDay)

	_, err = d.FindByCode(context.Background(), "nosuchcode")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestEventDAO_FindAll(t *testing.T) {
	insertTestEvent(t, "lista001")
	insertTestEvent(t, "listb002")

	d := NewEventDAO(testDB)
	events, err := d.FindAll(context.Background())

	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(events), 2)
}

func TestEventDAO_UpdateAttendedIndices(t *testing.T) {
	insertTestEvent(t, "indices1")

	d := NewEventDAO(testDB)

	require.NoError(t, d.UpdateAttendedIndices(context.Background(), "indices1", []int{0, 2}))

	found, err := d.FindByCode(context.Background(), "indices1")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, found.AttendedIndices)

	err = d.UpdateAttendedIndices(context.Background(), "nosuchcode", []int{0})
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestEventDAO_UpdateTodayList(t *testing.T) {
	insertTestEvent(t, "today001")

	d := NewEventDAO(testDB)

	require.NoError(t, d.UpdateTodayList(context.Background(), "today001", []string{"NEW1"}))

	found, err := d.FindByCode(context.Background(), "today001")
	require.NoError(t, err)
	assert.Equal(t, []string{"NEW1"}, found.TodayList)

	err = d.UpdateTodayList(context.Background(), "nosuchcode", []string{"NEW1"})
	assert.ErrorIs(t, err, ErrEventNotFound)
}
