// Package mongo looks up product documents in MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"nexusbuy-analytics/internal/analytics"
	"nexusbuy-analytics/pkg/logging/logging"
)

type Config struct {
	Host           string
	Port           int
	Database       string
	User           string
	Password       string
	ConnectTimeout time.Duration
}

func (c Config) WithDefaults() Config {
	if c.Port == 0 {
		c.Port = 27017
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	return c
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Database, validation.Required),
	)
}

// URI renders the connection string. Credentials are optional.
func (c Config) URI() string {
	u := url.URL{
		Scheme: "mongodb",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/",
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	return u.String()
}

// Store implements analytics.Documents.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials the server and pings the primary.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("mongo config: %w", err)
	}

	opts := options.Client().
		ApplyURI(cfg.URI()).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect failed: %w", err)
	}
	s := &Store{client: client, db: client.Database(cfg.Database)}
	if err := s.Ping(ctx); err != nil {
		_ = s.Close(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// FindOne returns the first document of collection matching filter, or
// (nil, nil) when none does. Driver types are converted to plain Go values.
func (s *Store) FindOne(ctx context.Context, collection string, filter map[string]any) (map[string]any, error) {
	start := time.Now()

	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M(filter)).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find_one %s: %w", collection, err)
	}

	logging.L(ctx).Debug("mongo_find_one",
		zap.String("collection", collection),
		zap.Duration("latency", time.Since(start)),
	)
	return normalizeDocument(raw), nil
}

// FindMany returns the documents of collection matching filter, sorted and
// limited as opts asks. An empty result is not an error.
func (s *Store) FindMany(ctx context.Context, collection string, filter map[string]any, opts analytics.FindOptions) ([]map[string]any, error) {
	start := time.Now()

	cursor, err := s.db.Collection(collection).Find(ctx, bson.M(filter), findOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("mongo find %s: %w", collection, err)
	}
	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("mongo find %s: %w", collection, err)
	}

	out := make([]map[string]any, 0, len(raw))
	for _, doc := range raw {
		out = append(out, normalizeDocument(doc))
	}

	logging.L(ctx).Debug("mongo_find",
		zap.String("collection", collection),
		zap.Int("documents", len(out)),
		zap.Duration("latency", time.Since(start)),
	)
	return out, nil
}

func findOptions(opts analytics.FindOptions) *options.FindOptions {
	fo := options.Find()
	if opts.SortField != "" {
		order := 1
		if opts.SortDesc {
			order = -1
		}
		fo.SetSort(bson.D{{Key: opts.SortField, Value: order}})
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	return fo
}

// normalizeDocument renders _id as a string and replaces driver-specific
// values with their plain Go equivalents, recursively.
func normalizeDocument(doc bson.M) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = normalizeValue(v)
	}
	if id, ok := out["_id"]; ok && id != nil {
		out["_id"] = idString(id)
	}
	return out
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	default:
		return fmt.Sprint(id)
	}
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Decimal128:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return t.String()
		}
		return d
	case primitive.M:
		return normalizeDocument(bson.M(t))
	case map[string]any:
		return normalizeDocument(bson.M(t))
	case primitive.D:
		m := make(bson.M, len(t))
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return normalizeDocument(m)
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}
