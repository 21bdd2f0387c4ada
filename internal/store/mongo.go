package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/attendd/attendd/internal/model"
)

// DefaultSelectionTimeout bounds server selection so a dead database
// surfaces at startup instead of after the driver's 30 second default.
const DefaultSelectionTimeout = 5 * time.Second

// Mongo implements Store on the mongo-driver client.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ Store = (*Mongo)(nil)

// Open connects to the database at uri and pings it once so a
// misconfigured URI fails here rather than on first use.
func Open(ctx context.Context, uri, database string) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(DefaultSelectionTimeout)
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("mongo options: %w", err)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	m := &Mongo{client: client, db: client.Database(database)}
	if err := m.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	return m, nil
}

// ensureIndexes enforces the identity invariants the orchestration code
// assumes: one student document per uid, one queue row per uid, one
// counter document per name. CreateOne is idempotent.
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	for _, spec := range []struct {
		coll string
		key  string
	}{
		{CollStudents, "uid"},
		{CollMissing, "uid"},
		{CollCounters, "name"},
	} {
		_, err := m.db.Collection(spec.coll).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: spec.key, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Ping verifies the primary is reachable.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close releases the client's connection pool.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) InsertStudent(ctx context.Context, s *model.Student) error {
	_, err := m.db.Collection(CollStudents).InsertOne(ctx, s)
	return err
}

func (m *Mongo) SaveStudent(ctx context.Context, s *model.Student) error {
	_, err := m.db.Collection(CollStudents).ReplaceOne(ctx,
		bson.M{"uid": s.UID}, s, options.Replace().SetUpsert(true))
	return err
}

func (m *Mongo) StudentByUID(ctx context.Context, uid int) (*model.Student, error) {
	var s model.Student
	found, err := m.findOne(ctx, CollStudents, bson.M{"uid": uid}, &s)
	if err != nil || !found {
		return nil, err
	}
	return &s, nil
}

func (m *Mongo) StudentByStudentID(ctx context.Context, studentID string) (*model.Student, error) {
	var s model.Student
	found, err := m.findOne(ctx, CollStudents, bson.M{"student_id": studentID}, &s)
	if err != nil || !found {
		return nil, err
	}
	return &s, nil
}

func (m *Mongo) DeleteStudent(ctx context.Context, uid int) error {
	_, err := m.db.Collection(CollStudents).DeleteOne(ctx, bson.M{"uid": uid})
	return err
}

func (m *Mongo) ListStudents(ctx context.Context, skip, limit int64) ([]*model.Student, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := m.db.Collection(CollStudents).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var out []*model.Student
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Mongo) EachStudent(ctx context.Context, fn func(*model.Student) error) error {
	cur, err := m.db.Collection(CollStudents).Find(ctx, bson.M{})
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var s model.Student
		if err := cur.Decode(&s); err != nil {
			return err
		}
		if err := fn(&s); err != nil {
			return err
		}
	}
	return cur.Err()
}

func (m *Mongo) InsertMissing(ctx context.Context, ms *model.MissingStudent) error {
	_, err := m.db.Collection(CollMissing).InsertOne(ctx, ms)
	return err
}

func (m *Mongo) SaveMissing(ctx context.Context, ms *model.MissingStudent) error {
	_, err := m.db.Collection(CollMissing).ReplaceOne(ctx,
		bson.M{"uid": ms.UID}, ms, options.Replace().SetUpsert(true))
	return err
}

func (m *Mongo) MissingByUID(ctx context.Context, uid int) (*model.MissingStudent, error) {
	var ms model.MissingStudent
	found, err := m.findOne(ctx, CollMissing, bson.M{"uid": uid}, &ms)
	if err != nil || !found {
		return nil, err
	}
	return &ms, nil
}

func (m *Mongo) DeleteMissing(ctx context.Context, uid int) error {
	_, err := m.db.Collection(CollMissing).DeleteOne(ctx, bson.M{"uid": uid})
	return err
}

func (m *Mongo) MissingStudents(ctx context.Context) ([]*model.MissingStudent, error) {
	cur, err := m.db.Collection(CollMissing).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var out []*model.MissingStudent
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Mongo) Counter(ctx context.Context, name string) (*model.Counter, error) {
	var c model.Counter
	found, err := m.findOne(ctx, CollCounters, bson.M{"name": name}, &c)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

func (m *Mongo) SaveCounter(ctx context.Context, c *model.Counter) error {
	_, err := m.db.Collection(CollCounters).ReplaceOne(ctx,
		bson.M{"name": c.Name}, c, options.Replace().SetUpsert(true))
	return err
}

func (m *Mongo) AppendCapture(ctx context.Context, entry *model.CaptureLog) error {
	_, err := m.db.Collection(CollCaptures).InsertOne(ctx, entry)
	return err
}

// findOne decodes a single document into out. The first return is
// false when no document matches.
func (m *Mongo) findOne(ctx context.Context, coll string, filter, out any) (bool, error) {
	err := m.db.Collection(coll).FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
