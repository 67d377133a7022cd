package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/GTDGit/pricewatch_api/internal/models"
	"github.com/GTDGit/pricewatch_api/internal/utils"
)

const usersCollection = "users"

// emailCollation compares emails case-insensitively.
var emailCollation = &options.Collation{Locale: "en", Strength: 2}

// UserStore keeps users in a MongoDB collection. Saved and recent lists are
// changed with single conditional updates; an update whose precondition
// does not hold surfaces as sql.ErrNoRows.
type UserStore struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewUserStore creates a UserStore on db.
func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{collection: db.Collection(usersCollection), now: time.Now}
}

func normalizeUser(u *models.User) {
	if u.SavedProducts == nil {
		u.SavedProducts = models.SavedProducts{}
	}
	if u.RecentProducts == nil {
		u.RecentProducts = models.RecentProducts{}
	}
}

// Create inserts a user. It returns utils.ErrEmailExists when the email is taken.
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	now := s.now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = now, now
	normalizeUser(u)

	if _, err := s.collection.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.ErrEmailExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var u models.User
	if err := s.collection.FindOne(ctx, filter, opts...).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	normalizeUser(&u)
	return &u, nil
}

// GetByID returns a single user by id.
func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail returns a single user by email, compared case-insensitively.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email}, options.FindOne().SetCollation(emailCollation))
}

// GetByToken returns the user currently holding token.
func (s *UserStore) GetByToken(ctx context.Context, token string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"token": token})
}

// SetToken stores token as the user's only active session.
func (s *UserStore) SetToken(ctx context.Context, userID, token string, issuedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	_, err := s.collection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{
		"token":           token,
		"token_issued_at": issuedAt,
		"updated_at":      s.now().UTC(),
	}})
	return err
}

// ClearToken ends the session holding token. It reports whether a session was found.
func (s *UserStore) ClearToken(ctx context.Context, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	res, err := s.collection.UpdateOne(ctx, bson.M{"token": token}, bson.M{
		"$unset": bson.M{"token": "", "token_issued_at": ""},
		"$set":   bson.M{"updated_at": s.now().UTC()},
	})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *UserStore) findMany(ctx context.Context, filter bson.M) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	for i := range users {
		normalizeUser(&users[i])
	}
	return users, nil
}

// List returns every user ordered by creation time.
func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	users, err := s.findMany(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ListWithNotifications returns users with at least one saved product that has
// email notification enabled.
func (s *UserStore) ListWithNotifications(ctx context.Context) ([]models.User, error) {
	users, err := s.findMany(ctx, notificationsFilter())
	if err != nil {
		return nil, fmt.Errorf("list users with notifications: %w", err)
	}
	return users, nil
}

func notificationsFilter() bson.M {
	return bson.M{"saved_products": bson.M{"$elemMatch": bson.M{"email_notification": true}}}
}

type listsDoc struct {
	SavedProducts  models.SavedProducts  `bson:"saved_products"`
	RecentProducts models.RecentProducts `bson:"recent_products"`
}

// updateLists applies update to the user matching filter and returns both
// lists after the change.
func (s *UserStore) updateLists(ctx context.Context, filter, update interface{}) (*listsDoc, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"saved_products": 1, "recent_products": 1})

	var doc listsDoc
	if err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	if doc.SavedProducts == nil {
		doc.SavedProducts = models.SavedProducts{}
	}
	if doc.RecentProducts == nil {
		doc.RecentProducts = models.RecentProducts{}
	}
	return &doc, nil
}

func (s *UserStore) touched() bson.M {
	return bson.M{"updated_at": s.now().UTC()}
}

// AddSaved appends code to the saved list unless it is already present.
func (s *UserStore) AddSaved(ctx context.Context, userID, code string) (models.SavedProducts, error) {
	filter := bson.M{"_id": userID, "saved_products.product_code": bson.M{"$ne": code}}
	update := bson.M{
		"$push": bson.M{"saved_products": models.SavedProduct{ProductCode: code}},
		"$set":  s.touched(),
	}
	doc, err := s.updateLists(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	return doc.SavedProducts, nil
}

// RemoveSaved drops code from the saved list if present.
func (s *UserStore) RemoveSaved(ctx context.Context, userID, code string) (models.SavedProducts, error) {
	filter := bson.M{"_id": userID, "saved_products.product_code": code}
	update := bson.M{
		"$pull": bson.M{"saved_products": bson.M{"product_code": code}},
		"$set":  s.touched(),
	}
	doc, err := s.updateLists(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	return doc.SavedProducts, nil
}

// SetSavedNotification sets the email flag of the saved entry for code.
func (s *UserStore) SetSavedNotification(ctx context.Context, userID, code string, enabled bool) (models.SavedProducts, error) {
	filter := bson.M{"_id": userID, "saved_products.product_code": code}
	set := s.touched()
	set["saved_products.$.email_notification"] = enabled
	doc, err := s.updateLists(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return nil, err
	}
	return doc.SavedProducts, nil
}

// TouchRecent moves code to the front of the recent list and keeps at most limit entries.
func (s *UserStore) TouchRecent(ctx context.Context, userID, code string, limit int) (models.RecentProducts, error) {
	doc, err := s.updateLists(ctx, bson.M{"_id": userID}, touchRecentPipeline(code, limit))
	if err != nil {
		return nil, err
	}
	return doc.RecentProducts, nil
}

// RemoveRecent drops code from the recent list if present.
func (s *UserStore) RemoveRecent(ctx context.Context, userID, code string) (models.RecentProducts, error) {
	filter := bson.M{"_id": userID, "recent_products.product_code": code}
	update := bson.M{
		"$pull": bson.M{"recent_products": bson.M{"product_code": code}},
		"$set":  s.touched(),
	}
	doc, err := s.updateLists(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	return doc.RecentProducts, nil
}

// ClearRecent empties the recent list.
func (s *UserStore) ClearRecent(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	set := s.touched()
	set["recent_products"] = bson.A{}
	_, err := s.collection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": set})
	return err
}
