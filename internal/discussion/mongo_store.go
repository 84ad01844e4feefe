package discussion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felicity-dev/felicity/internal/apperrors"
	"github.com/felicity-dev/felicity/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const messagesCollection = "discussion_messages"

type mongoMessage struct {
	ID         string             `bson:"_id"`
	EventID    int64              `bson:"event_id"`
	AuthorID   int64              `bson:"author_id"`
	AuthorName string             `bson:"author_name"`
	AuthorRole string             `bson:"author_role"`
	Content    string             `bson:"content"`
	Type       string             `bson:"type"`
	ParentID   string             `bson:"parent_id,omitempty"`
	Pinned     bool               `bson:"pinned"`
	Reactions  map[string][]int64 `bson:"reactions"`
	CreatedAt  time.Time          `bson:"created_at"`
}

// MongoStore keeps the discussion log in a MongoDB collection with
// reactions embedded in each document.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(database *mongo.Database) *MongoStore {
	return &MongoStore{col: database.Collection(messagesCollection)}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("discussion_event_order"),
		},
		{
			Keys:    bson.D{{Key: "parent_id", Value: 1}},
			Options: options.Index().SetName("discussion_parent"),
		},
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("discussion_announcements"),
		},
	})
	if err != nil {
		return fmt.Errorf("discussion indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, msg Message) error {
	doc := mongoMessage{
		ID:         msg.ID,
		EventID:    int64(msg.EventID),
		AuthorID:   int64(msg.AuthorID),
		AuthorName: msg.AuthorName,
		AuthorRole: msg.AuthorRole,
		Content:    msg.Content,
		Type:       msg.Type,
		ParentID:   msg.ParentID,
		Pinned:     msg.Pinned,
		Reactions:  map[string][]int64{},
		CreatedAt:  msg.CreatedAt.UTC(),
	}

	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (Message, error) {
	var doc mongoMessage
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Message{}, apperrors.ErrMessageNotFound
		}
		return Message{}, fmt.Errorf("get message: %w", err)
	}
	return doc.toMessage(), nil
}

func (s *MongoStore) ListByEvent(ctx context.Context, eventID uint) ([]Message, error) {
	return s.find(ctx, bson.M{"event_id": int64(eventID)})
}

func (s *MongoStore) Delete(ctx context.Context, id string) ([]string, error) {
	filter := bson.M{"$or": bson.A{bson.M{"_id": id}, bson.M{"parent_id": id}}}

	found, err := s.find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, apperrors.ErrMessageNotFound
	}

	removed := make([]string, len(found))
	for i, msg := range found {
		removed[i] = msg.ID
	}

	if _, err := s.col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": removed}}); err != nil {
		return nil, fmt.Errorf("delete messages: %w", err)
	}
	return removed, nil
}

func (s *MongoStore) SetPinned(ctx context.Context, id string, pinned bool) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"pinned": pinned}})
	if err != nil {
		return fmt.Errorf("pin message: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrMessageNotFound
	}
	return nil
}

func (s *MongoStore) ToggleReaction(ctx context.Context, id, emoji string, accountID uint) (map[string][]uint, error) {
	field := "reactions." + emoji
	member := int64(accountID)

	pulled, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, field: member},
		bson.M{"$pull": bson.M{field: member}},
	)
	if err != nil {
		return nil, fmt.Errorf("remove reaction: %w", err)
	}

	var doc mongoMessage
	if pulled.MatchedCount > 0 {
		err = s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	} else {
		err = s.col.FindOneAndUpdate(ctx,
			bson.M{"_id": id},
			bson.M{"$addToSet": bson.M{field: member}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&doc)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrMessageNotFound
		}
		return nil, fmt.Errorf("toggle reaction: %w", err)
	}

	return doc.toMessage().Reactions, nil
}

func (s *MongoStore) AnnouncementsSince(ctx context.Context, eventIDs []uint, since time.Time) ([]Message, error) {
	if len(eventIDs) == 0 {
		return []Message{}, nil
	}

	ids := make(bson.A, len(eventIDs))
	for i, id := range eventIDs {
		ids[i] = int64(id)
	}

	return s.find(ctx, bson.M{
		"event_id":   bson.M{"$in": ids},
		"type":       models.MessageTypeAnnouncement,
		"created_at": bson.M{"$gt": since.UTC()},
	})
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]Message, error) {
	cur, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer cur.Close(ctx)

	result := []Message{}
	for cur.Next(ctx) {
		var doc mongoMessage
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		result = append(result, doc.toMessage())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list messages cursor: %w", err)
	}
	return result, nil
}

func (d mongoMessage) toMessage() Message {
	reactions := make(map[string][]uint, len(d.Reactions))
	for emoji, ids := range d.Reactions {
		if len(ids) == 0 {
			continue
		}
		members := make([]uint, len(ids))
		for i, id := range ids {
			members[i] = uint(id)
		}
		reactions[emoji] = members
	}

	return Message{
		ID:         d.ID,
		EventID:    uint(d.EventID),
		AuthorID:   uint(d.AuthorID),
		AuthorName: d.AuthorName,
		AuthorRole: d.AuthorRole,
		Content:    d.Content,
		Type:       d.Type,
		ParentID:   d.ParentID,
		Pinned:     d.Pinned,
		Reactions:  reactions,
		CreatedAt:  d.CreatedAt,
	}
}
