// Package mongo stores users in a MongoDB collection keyed by a unique email index.
package mongo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oksasatya/go-identity-service/internal/domain/entity"
	"github.com/oksasatya/go-identity-service/internal/domain/repository"
)

// userDoc is the stored shape of entity.User. Field names follow the
// collection written by the earlier service so existing accounts keep
// working. Optional fields are omitted when empty so verificationCode only
// exists while a confirmation is pending.
type userDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Email            string             `bson:"email"`
	HashedPassword   legacyString       `bson:"hashedPassword,omitempty"`
	FirstName        string             `bson:"firstName,omitempty"`
	LastName         string             `bson:"lastName,omitempty"`
	Address          string             `bson:"address,omitempty"`
	Phone            legacyString       `bson:"phone,omitempty"`
	PostCode         legacyString       `bson:"postCode,omitempty"`
	Locale           string             `bson:"locale,omitempty"`
	EmailConfirmed   bool               `bson:"emailConfirmed"`
	VerificationCode legacyString       `bson:"verificationCode,omitempty"`
	SocialID         string             `bson:"fbId,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt,omitempty"`
}

// legacyString reads fields that older documents stored as numbers or as a
// NUL padded binary buffer. It is always written back as a string.
type legacyString string

func (s *legacyString) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	v := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		*s = legacyString(v.StringValue())
	case bsontype.Binary:
		_, b := v.Binary()
		*s = legacyString(bytes.TrimRight(b, "\x00"))
	case bsontype.Int32:
		*s = legacyString(strconv.FormatInt(int64(v.Int32()), 10))
	case bsontype.Int64:
		*s = legacyString(strconv.FormatInt(v.Int64(), 10))
	case bsontype.Double:
		*s = legacyString(strconv.FormatFloat(v.Double(), 'f', -1, 64))
	case bsontype.Null, bsontype.Undefined:
		*s = ""
	default:
		return fmt.Errorf("decode %s into string field", t)
	}
	return nil
}

func (d userDoc) toEntity() *entity.User {
	return &entity.User{
		ID:               d.ID.Hex(),
		Email:            d.Email,
		HashedPassword:   string(d.HashedPassword),
		FirstName:        d.FirstName,
		LastName:         d.LastName,
		Address:          d.Address,
		Phone:            string(d.Phone),
		PostCode:         string(d.PostCode),
		Locale:           d.Locale,
		EmailConfirmed:   d.EmailConfirmed,
		VerificationCode: string(d.VerificationCode),
		SocialID:         d.SocialID,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

type UserRepository struct {
	c *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{c: db.Collection("users")}
}

// Connect opens a client and verifies connectivity within timeout.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// EnsureIndexes creates the unique email index that backs insert-time conflict detection.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("uniq_users_email").SetUnique(true),
	})
	return err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var d userDoc
	if err := r.c.FindOne(ctx, bson.M{"email": entity.NormalizeEmail(email)}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return d.toEntity(), nil
}

func (r *UserRepository) Insert(ctx context.Context, u *entity.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	d := userDoc{
		ID:               primitive.NewObjectID(),
		Email:            entity.NormalizeEmail(u.Email),
		HashedPassword:   legacyString(u.HashedPassword),
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Address:          u.Address,
		Phone:            legacyString(u.Phone),
		PostCode:         legacyString(u.PostCode),
		Locale:           u.Locale,
		EmailConfirmed:   u.EmailConfirmed,
		VerificationCode: legacyString(u.VerificationCode),
		SocialID:         u.SocialID,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.CreatedAt,
	}
	if _, err := r.c.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicateEmail
		}
		return err
	}
	u.ID = d.ID.Hex()
	u.Email = d.Email
	u.UpdatedAt = d.UpdatedAt
	return nil
}

func (r *UserRepository) UpdateByID(ctx context.Context, id string, upd entity.UserUpdate) error {
	if upd.IsEmpty() {
		return nil
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("user id %q: %w", id, repository.ErrNotFound)
	}
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.HashedPassword != nil {
		set["hashedPassword"] = *upd.HashedPassword
	}
	if upd.Locale != nil {
		set["locale"] = *upd.Locale
	}
	if upd.VerificationCode != nil {
		set["verificationCode"] = *upd.VerificationCode
	}
	if upd.SocialID != nil {
		set["fbId"] = *upd.SocialID
	}
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ConfirmEmail(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("user id %q: %w", id, repository.ErrNotFound)
	}
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set":   bson.M{"emailConfirmed": true, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{"verificationCode": ""},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
