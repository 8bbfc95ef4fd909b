// Package mongostore implements session.Store on MongoDB. Each user is one document
// with an embedded sessions array, so every session mutation is a single-document
// update and therefore atomic.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/ffauth/session"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection is used when New is given an empty collection name.
const DefaultCollection = "users"

type sessionDoc struct {
	TokenID   string    `bson:"tokenId"`
	CreatedAt time.Time `bson:"createdAt"`
}

type userDoc struct {
	ID           string       `bson:"_id"`
	Email        string       `bson:"email"`
	PasswordHash string       `bson:"passwordHash"`
	Name         string       `bson:"name"`
	Sessions     []sessionDoc `bson:"sessions"`
	CreatedAt    time.Time    `bson:"createdAt"`
}

// Store is a MongoDB-backed session.Store.
type Store struct {
	users *mongo.Collection
}

// New returns a Store over db.collection. Call EnsureIndexes once at startup.
func New(db *mongo.Database, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{users: db.Collection(collection)}
}

// EnsureIndexes creates the unique email index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
}

func toSessionDoc(s session.Session) sessionDoc {
	return sessionDoc{TokenID: s.TokenID, CreatedAt: s.CreatedAt.UTC()}
}

func (d *userDoc) toUser() *session.User {
	u := &session.User{
		ID:           d.ID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Name:         d.Name,
		CreatedAt:    d.CreatedAt.UTC(),
		Sessions:     make([]session.Session, 0, len(d.Sessions)),
	}
	for _, s := range d.Sessions {
		u.Sessions = append(u.Sessions, session.Session{TokenID: s.TokenID, CreatedAt: s.CreatedAt.UTC()})
	}
	return u
}

func (s *Store) CreateUser(ctx context.Context, u *session.User) error {
	doc := userDoc{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		Sessions:     []sessionDoc{},
		CreatedAt:    u.CreatedAt.UTC(),
	}
	for _, sess := range u.Sessions {
		doc.Sessions = append(doc.Sessions, toSessionDoc(sess))
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return session.ErrEmailTaken
		}
		return unavailable(err)
	}
	return nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*session.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, session.ErrUserNotFound
		}
		return nil, unavailable(err)
	}
	return doc.toUser(), nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*session.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*session.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

// Append pushes sess unless a session with the same TokenID is already present.
func (s *Store) Append(ctx context.Context, userID string, sess session.Session) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID, "sessions.tokenId": bson.M{"$ne": sess.TokenID}},
		bson.M{"$push": bson.M{"sessions": toSessionDoc(sess)}},
	)
	if err != nil {
		return unavailable(err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	exists, err := s.count(ctx, bson.M{"_id": userID})
	if err != nil {
		return err
	}
	if !exists {
		return session.ErrUserNotFound
	}
	return session.ErrDuplicateSession
}

func (s *Store) Remove(ctx context.Context, userID, tokenID string) (bool, error) {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"sessions": bson.M{"tokenId": tokenID}}},
	)
	if err != nil {
		return false, unavailable(err)
	}
	return res.ModifiedCount > 0, nil
}

// Replace overwrites the element holding oldTokenID in place. The filter only
// matches while oldTokenID is still present, so concurrent callers serialize on the
// document and exactly one of them matches.
func (s *Store) Replace(ctx context.Context, userID, oldTokenID string, next session.Session) error {
	filter := bson.M{
		"_id":              userID,
		"sessions.tokenId": oldTokenID,
		"$nor":             bson.A{bson.M{"sessions.tokenId": next.TokenID}},
	}
	update := bson.M{"$set": bson.M{"sessions.$[s]": toSessionDoc(next)}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"s.tokenId": oldTokenID}},
	})

	res, err := s.users.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return unavailable(err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	stillThere, err := s.count(ctx, bson.M{"_id": userID, "sessions.tokenId": oldTokenID})
	if err != nil {
		return err
	}
	if stillThere {
		return session.ErrDuplicateSession
	}
	return session.ErrSessionNotFound
}

func (s *Store) Contains(ctx context.Context, userID, tokenID string) (bool, error) {
	return s.count(ctx, bson.M{"_id": userID, "sessions.tokenId": tokenID})
}

// Prune pulls every session created before createdBefore and reports how many the
// pre-image held.
func (s *Store) Prune(ctx context.Context, userID string, createdBefore time.Time) (int, error) {
	var before userDoc
	err := s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"sessions": bson.M{"createdAt": bson.M{"$lt": createdBefore.UTC()}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, unavailable(err)
	}

	cutoff := createdBefore.UTC().Truncate(time.Millisecond)
	removed := 0
	for _, sess := range before.Sessions {
		if sess.CreatedAt.Before(cutoff) {
			removed++
		}
	}
	return removed, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"passwordHash": hash}},
	)
	if err != nil {
		return unavailable(err)
	}
	if res.MatchedCount == 0 {
		return session.ErrUserNotFound
	}
	return nil
}

func (s *Store) count(ctx context.Context, filter bson.M) (bool, error) {
	n, err := s.users.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}
