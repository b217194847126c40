package groupstore_test

import (
	"testing"

	groupstore "github.com/dalemusser/learnportal/internal/app/store/groups"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"github.com/dalemusser/learnportal/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := fixtures.CreateTeacher(ctx, "Teacher", "t@example.com")

	created, err := store.Create(ctx, models.Group{Name: "Robotics Club", CreatedBy: teacher.ID})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.NameCI == "" {
		t.Error("expected NameCI to be set")
	}
	if len(created.Creators) != 1 || created.Creators[0] != teacher.ID {
		t.Errorf("creators should start with created_by, got %v", created.Creators)
	}
}

func TestStore_CreatorSync(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateTeacher(ctx, "Owner", "owner@example.com")
	co := fixtures.CreateTeacher(ctx, "Co", "co@example.com")
	g := fixtures.CreateGroup(ctx, "G", owner.ID)

	if err := store.AddCreator(ctx, g.ID, co.ID); err != nil {
		t.Fatalf("AddCreator: %v", err)
	}
	if err := store.AddCreator(ctx, g.ID, co.ID); err != nil {
		t.Fatalf("AddCreator twice: %v", err)
	}
	got, _ := store.GetByID(ctx, g.ID)
	if len(got.Creators) != 2 {
		t.Fatalf("expected 2 creators, got %v", got.Creators)
	}

	// the primary creator is never pulled
	if err := store.RemoveCreator(ctx, g.ID, owner.ID); err != nil {
		t.Fatalf("RemoveCreator owner: %v", err)
	}
	if err := store.RemoveCreator(ctx, g.ID, co.ID); err != nil {
		t.Fatalf("RemoveCreator: %v", err)
	}
	got, _ = store.GetByID(ctx, g.ID)
	if len(got.Creators) != 1 || got.Creators[0] != owner.ID {
		t.Errorf("expected only owner, got %v", got.Creators)
	}
}

func TestStore_UpdateInfo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateTeacher(ctx, "Owner", "owner@example.com")
	g := fixtures.CreateGroup(ctx, "Old", owner.ID)

	desc := "new description"
	got, err := store.UpdateInfo(ctx, g.ID, "New", &desc)
	if err != nil {
		t.Fatalf("UpdateInfo: %v", err)
	}
	if got.Name != "New" || got.Description != desc {
		t.Errorf("unexpected group %+v", got)
	}
}

func TestStore_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateTeacher(ctx, "Owner", "owner@example.com")
	b := fixtures.CreateGroup(ctx, "Beta", owner.ID)
	fixtures.CreateGroup(ctx, "Alpha", owner.ID)

	all, err := store.List(ctx, nil)
	if err != nil || len(all) != 2 || all[0].Name != "Alpha" {
		t.Fatalf("List all: %v %+v", err, all)
	}
	some, err := store.List(ctx, []primitive.ObjectID{b.ID})
	if err != nil || len(some) != 1 {
		t.Fatalf("List some: %v %+v", err, some)
	}
	none, err := store.List(ctx, []primitive.ObjectID{})
	if err != nil || len(none) != 0 {
		t.Fatalf("List none: %v %+v", err, none)
	}
}
