// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/learnportal/internal/app/system/normalize"
	"github.com/dalemusser/learnportal/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when another account already uses the email.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadRole        = errors.New(`role must be "student"|"teacher"|"admin"`)
	errBadStatus      = errors.New(`status must be "active"|"inactive"`)
)

// GetByID loads a user. A missing user is mongo.ErrNoDocuments.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// GetByEmail looks up a user by normalized email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// FindByIDs returns the users whose ids are in ids, in no particular order.
func (s *Store) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new user after normalizing and validating fields.
// Admin accounts are always stored approved.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Name = normalize.Name(u.Name)
	u.NameCI = text.Fold(u.Name)
	u.Email = normalize.Email(u.Email)
	u.Role = normalize.Role(u.Role)
	if u.Status == "" {
		u.Status = models.StatusActive
	}
	if u.ApprovalStatus == "" {
		u.ApprovalStatus = models.ApprovalPending
	}

	if !models.ValidRole(u.Role) {
		return models.User{}, errBadRole
	}
	if u.Status != models.StatusActive && u.Status != models.StatusInactive {
		return models.User{}, errBadStatus
	}
	if u.Role == models.RoleAdmin {
		u.ApprovalStatus = models.ApprovalApproved
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// ProfileUpdate holds the self-service editable fields. Empty means unchanged.
type ProfileUpdate struct {
	Name  string
	Email string
}

// UpdateProfile applies upd and returns the updated user.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if n := normalize.Name(upd.Name); n != "" {
		set["name"] = n
		set["name_ci"] = text.Fold(n)
	}
	if e := normalize.Email(upd.Email); e != "" {
		set["email"] = e
	}

	var u models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&u)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// SetPasswordHash replaces the stored password hash.
func (s *Store) SetPasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Approve marks the user approved. It reports false when the user was not
// pending (already approved or missing).
func (s *Store) Approve(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "approval_status": bson.M{"$ne": models.ApprovalApproved}},
		bson.M{"$set": bson.M{"approval_status": models.ApprovalApproved, "updated_at": time.Now().UTC()}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// ApproveMany approves every listed user and returns how many changed.
func (s *Store) ApproveMany(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"approval_status": models.ApprovalApproved, "updated_at": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// SetStatus moves the user to status. It reports false when the user was
// already in that status.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) (bool, error) {
	status = normalize.Status(status)
	if status != models.StatusActive && status != models.StatusInactive {
		return false, errBadStatus
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": status}},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// PromoteAdmin makes the user an active, approved admin.
func (s *Store) PromoteAdmin(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"role":            models.RoleAdmin,
		"status":          models.StatusActive,
		"approval_status": models.ApprovalApproved,
		"updated_at":      time.Now().UTC(),
	}})
	return err
}

// ListFilter narrows List. Empty fields do not filter.
type ListFilter struct {
	Role           string
	Status         string
	ApprovalStatus string
	Search         string // prefix match on folded name
}

// List returns users sorted by name, and the total matching count.
func (s *Store) List(ctx context.Context, f ListFilter, skip, limit int64) ([]models.User, int64, error) {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = normalize.Role(f.Role)
	}
	if f.Status != "" {
		filter["status"] = normalize.Status(f.Status)
	}
	if f.ApprovalStatus != "" {
		filter["approval_status"] = normalize.Status(f.ApprovalStatus)
	}
	if q := normalize.QueryParam(f.Search); q != "" {
		filter["name_ci"] = bson.M{"$regex": "^" + regexp.QuoteMeta(text.Fold(q))}
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(skip).SetLimit(limit)
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Delete removes the user document only. Use the cascade for dependents.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// EmailExistsForOther checks if an email already exists for a user other than excludeID.
func (s *Store) EmailExistsForOther(ctx context.Context, email string, excludeID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"email": normalize.Email(email),
		"_id":   bson.M{"$ne": excludeID},
	}).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}
