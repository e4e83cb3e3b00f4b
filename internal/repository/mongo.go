package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/advisio/messaging-core/internal/domain"
)

const (
	transactionsCollection = "transactions"
	appointmentsCollection = "appointments"
	applicationsCollection = "applications"
	chatCollection         = "chat_messages"
	clientsCollection      = "clients"
)

// MongoTransactionRepository is the document-store implementation of
// TransactionRepository.
type MongoTransactionRepository struct {
	coll *mongo.Collection
}

func NewMongoTransactionRepository(db *mongo.Database) *MongoTransactionRepository {
	return &MongoTransactionRepository{coll: db.Collection(transactionsCollection)}
}

func (r *MongoTransactionRepository) GetByIntentID(ctx context.Context, intentID string) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := r.coll.FindOne(ctx, bson.M{"intent_id": intentID}).Decode(&tx)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find transaction by intent %s: %w", intentID, err)
	}
	return &tx, nil
}

func (r *MongoTransactionRepository) Save(ctx context.Context, tx *domain.Transaction) error {
	tx.UpdatedAt = time.Now().UTC()

	_, err := r.coll.ReplaceOne(ctx,
		bson.M{"intent_id": tx.IntentID},
		tx,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save transaction %s: %w", tx.IntentID, err)
	}
	return nil
}

var _ TransactionRepository = (*MongoTransactionRepository)(nil)

// MongoAppointmentRepository is the document-store implementation of
// AppointmentRepository.
type MongoAppointmentRepository struct {
	coll *mongo.Collection
}

func NewMongoAppointmentRepository(db *mongo.Database) *MongoAppointmentRepository {
	return &MongoAppointmentRepository{coll: db.Collection(appointmentsCollection)}
}

func (r *MongoAppointmentRepository) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoAppointmentRepository) GetByEventURI(ctx context.Context, uri string) (*domain.Appointment, error) {
	return r.findOne(ctx, bson.M{"event_uri": uri})
}

func (r *MongoAppointmentRepository) findOne(ctx context.Context, filter bson.M) (*domain.Appointment, error) {
	var appt domain.Appointment
	err := r.coll.FindOne(ctx, filter).Decode(&appt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	return &appt, nil
}

func (r *MongoAppointmentRepository) Update(ctx context.Context, appt *domain.Appointment) error {
	appt.UpdatedAt = time.Now().UTC()

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": appt.ID}, appt)
	if err != nil {
		return fmt.Errorf("update appointment %s: %w", appt.ID, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ AppointmentRepository = (*MongoAppointmentRepository)(nil)

// MongoApplicationRepository links transactions to application documents.
type MongoApplicationRepository struct {
	coll *mongo.Collection
}

func NewMongoApplicationRepository(db *mongo.Database) *MongoApplicationRepository {
	return &MongoApplicationRepository{coll: db.Collection(applicationsCollection)}
}

func (r *MongoApplicationRepository) AttachTransaction(ctx context.Context, applicationID, transactionID string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": applicationID},
		bson.M{"$set": bson.M{
			"transaction_id": transactionID,
			"updated_at":     time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("attach transaction to application %s: %w", applicationID, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ ApplicationRepository = (*MongoApplicationRepository)(nil)

// MongoChatRepository persists chat messages and read receipts.
type MongoChatRepository struct {
	coll *mongo.Collection
}

func NewMongoChatRepository(db *mongo.Database) *MongoChatRepository {
	return &MongoChatRepository{coll: db.Collection(chatCollection)}
}

func (r *MongoChatRepository) MessageExists(ctx context.Context, messageID string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": messageID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check chat message %s: %w", messageID, err)
	}
	return n > 0, nil
}

func (r *MongoChatRepository) InsertMessage(ctx context.Context, msg *domain.ChatMessage) error {
	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("insert chat message %s: %w", msg.MessageID, err)
	}
	return nil
}

func (r *MongoChatRepository) MarkConversationRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"conversation_id": conversationID, "recipient_id": readerID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark conversation %s read: %w", conversationID, err)
	}
	return res.ModifiedCount, nil
}

var _ ChatRepository = (*MongoChatRepository)(nil)

// MongoClientRepository serves the birthday fan-out query.
type MongoClientRepository struct {
	coll *mongo.Collection
}

func NewMongoClientRepository(db *mongo.Database) *MongoClientRepository {
	return &MongoClientRepository{coll: db.Collection(clientsCollection)}
}

func (r *MongoClientRepository) FindWithBirthdayOn(ctx context.Context, month time.Month, day int) ([]domain.Client, error) {
	filter := bson.M{"$expr": bson.M{"$and": bson.A{
		bson.M{"$eq": bson.A{bson.M{"$month": "$birthday"}, int(month)}},
		bson.M{"$eq": bson.A{bson.M{"$dayOfMonth": "$birthday"}, day}},
	}}}

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find clients with birthday %d-%d: %w", month, day, err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var clients []domain.Client
	if err := cursor.All(ctx, &clients); err != nil {
		return nil, fmt.Errorf("decode birthday clients: %w", err)
	}
	return clients, nil
}

var _ ClientRepository = (*MongoClientRepository)(nil)
