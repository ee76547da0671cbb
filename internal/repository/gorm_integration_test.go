//go:build integration

package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xelth-com/mprgo/internal/models"
)

const integrationPort = 55433

// openPostgres starts a throwaway embedded postgres and returns a migrated
// GormStore on it.
func openPostgres(t *testing.T) *GormStore {
	t.Helper()
	dir := t.TempDir()

	pg := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		DataPath(filepath.Join(dir, "data")).
		RuntimePath(filepath.Join(dir, "run")).
		Port(integrationPort).
		Database("mpr_test").
		Username("postgres").
		Password("postgres"))
	require.NoError(t, pg.Start())
	t.Cleanup(func() { _ = pg.Stop() })

	dsn := fmt.Sprintf("host=localhost port=%d user=postgres password=postgres dbname=mpr_test sslmode=disable", integrationPort)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	require.NoError(t, db.AutoMigrate(models.All()...))
	return New(db)
}

func day(d int) *time.Time {
	t := time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestGormStore(t *testing.T) {
	store := openPostgres(t)
	ctx := context.Background()

	early := &models.Visit{UUID: uuid.NewString(), Date: day(2), ClientINN: "7701", ManagerID: "M1", Processed: "R-1"}
	late := &models.Visit{UUID: uuid.NewString(), Date: day(9), ClientINN: "7702", ManagerID: "M2"}
	undated := &models.Visit{UUID: uuid.NewString(), ClientINN: "7701", ManagerID: "M1"}
	for _, v := range []*models.Visit{undated, late, early} {
		require.NoError(t, store.SaveVisit(ctx, v))
	}

	t.Run("visits order by date with undated last", func(t *testing.T) {
		list, err := store.ListVisits(ctx, VisitFilter{})
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{early.UUID, late.UUID, undated.UUID}, []string{list[0].UUID, list[1].UUID, list[2].UUID})
	})

	t.Run("visit filters", func(t *testing.T) {
		list, err := store.ListVisits(ctx, VisitFilter{DateFrom: day(5)})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, late.UUID, list[0].UUID)

		m1 := "M1"
		list, err = store.ListVisits(ctx, VisitFilter{ManagerID: &m1, Limit: 1})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, early.UUID, list[0].UUID)

		yes := true
		list, err = store.ListVisits(ctx, VisitFilter{Processed: &yes})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "R-1", list[0].Processed)
	})

	t.Run("duplicate visit uuid", func(t *testing.T) {
		err := store.SaveVisit(ctx, &models.Visit{UUID: early.UUID, ClientINN: "7709", ManagerID: "M1"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("order lines merge on product item", func(t *testing.T) {
		require.NoError(t, store.SaveOrderLine(ctx, &models.OrderLine{VisitID: early.ID, ProductItem: "A-1", Order: 1}))
		require.NoError(t, store.SaveOrderLine(ctx, &models.OrderLine{VisitID: early.ID, ProductItem: "B-2", Order: 2}))
		require.NoError(t, store.SaveOrderLine(ctx, &models.OrderLine{VisitID: early.ID, ProductItem: "A-1", Order: 5, Sales: 3}))

		v, err := store.VisitByUUID(ctx, early.UUID)
		require.NoError(t, err)
		require.Len(t, v.Orders, 2)
		assert.Equal(t, "A-1", v.Orders[0].ProductItem)
		assert.Equal(t, 5, v.Orders[0].Order)
		assert.Equal(t, 3, v.Orders[0].Sales)
	})

	t.Run("lock visit inside a transaction", func(t *testing.T) {
		err := store.Transaction(ctx, func(tx Store) error {
			v, err := tx.LockVisit(ctx, early.UUID)
			if err != nil {
				return err
			}
			assert.Len(t, v.Orders, 2)
			v.Status = models.VisitStatusInProgress
			return tx.SaveVisit(ctx, v)
		})
		require.NoError(t, err)

		v, err := store.VisitByUUID(ctx, early.UUID)
		require.NoError(t, err)
		assert.Equal(t, models.VisitStatusInProgress, v.Status)
	})

	current := &models.ChecklistQuestion{UUID: uuid.NewString(), ClientType: "retail", Text: "Shelf share?", Active: true, Version: 1}
	retired := &models.ChecklistQuestion{UUID: uuid.NewString(), ClientType: "retail", Text: "Old question", Version: 1}
	require.NoError(t, store.SaveQuestion(ctx, current))
	require.NoError(t, store.SaveQuestion(ctx, retired))

	t.Run("question active filter", func(t *testing.T) {
		yes, no := true, false
		for _, tc := range []struct {
			active *bool
			want   int
		}{{nil, 2}, {&yes, 1}, {&no, 1}} {
			list, err := store.ListQuestions(ctx, QuestionFilter{Active: tc.active})
			require.NoError(t, err)
			assert.Len(t, list, tc.want)
		}
	})

	t.Run("answers filter through the visit", func(t *testing.T) {
		require.NoError(t, store.CreateAnswer(ctx, &models.ChecklistAnswer{
			UUID: uuid.NewString(), VisitID: early.ID, VisitUUID: early.UUID, QuestionUUID: current.UUID, Answer1: "40%",
		}))
		require.NoError(t, store.CreateAnswer(ctx, &models.ChecklistAnswer{
			UUID: uuid.NewString(), VisitID: late.ID, VisitUUID: late.UUID, QuestionUUID: current.UUID, Answer1: "10%",
		}))
		err := store.CreateAnswer(ctx, &models.ChecklistAnswer{
			UUID: uuid.NewString(), VisitID: late.ID, VisitUUID: late.UUID, QuestionUUID: current.UUID,
		})
		assert.ErrorIs(t, err, ErrDuplicate)

		inn, m2 := "7701", "M2"
		list, err := store.ListAnswers(ctx, AnswerFilter{ClientINN: &inn})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "40%", list[0].Answer1)

		list, err = store.ListAnswers(ctx, AnswerFilter{ManagerID: &m2, QuestionUUID: &current.UUID})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, late.UUID, list[0].VisitUUID)
	})

	t.Run("delete visit removes lines and answers", func(t *testing.T) {
		require.NoError(t, store.DeleteVisit(ctx, late.ID))
		assert.ErrorIs(t, store.DeleteVisit(ctx, late.ID), ErrNotFound)

		list, err := store.ListAnswers(ctx, AnswerFilter{VisitUUID: &late.UUID})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("client upsert and visibility", func(t *testing.T) {
		clients := []models.Client{
			{INN: "7701", Name: "Own", ManagerID: "M1", Active: true},
			{INN: "7702", Name: "Shared", ManagerID: "M2", AuthorizedManagers: datatypes.JSONSlice[string]{"M1"}, Active: true},
			{INN: "7703", Name: "Foreign", ManagerID: "M2", Active: true},
		}
		require.NoError(t, store.UpsertClients(ctx, clients))
		require.NoError(t, store.UpsertClients(ctx, []models.Client{{INN: "7701", Name: "Renamed", ManagerID: "M1"}}))

		c, err := store.ClientByINN(ctx, "7701")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", c.Name)
		assert.False(t, c.Active)

		m1 := "M1"
		visible, err := store.ListClients(ctx, ClientFilter{VisibleTo: &m1})
		require.NoError(t, err)
		require.Len(t, visible, 2)
		assert.Equal(t, "7701", visible[0].INN)
		assert.Equal(t, "7702", visible[1].INN)
	})

	t.Run("users resolve by external key", func(t *testing.T) {
		managerID := "M1"
		require.NoError(t, store.CreateUser(ctx, &models.UserAuth{Username: "ivan", Password: "x", Role: "MPR", ManagerID: &managerID}))
		require.NoError(t, store.CreateUser(ctx, &models.UserAuth{Username: "olga", Password: "x", Role: "OFFICE"}))
		assert.ErrorIs(t, store.CreateUser(ctx, &models.UserAuth{Username: "ivan", Password: "x", Role: "MPR"}), ErrDuplicate)

		u, err := store.UserByExternalKey(ctx, "M1")
		require.NoError(t, err)
		assert.Equal(t, "ivan", u.Username)

		u, err = store.UserByExternalKey(ctx, "olga")
		require.NoError(t, err)
		assert.Equal(t, "OFFICE", u.Role)

		_, err = store.UserByExternalKey(ctx, "ivan")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
