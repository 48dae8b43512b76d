package repository

import (
	"context"
	"time"

	"GreenBot/bot/greenbot"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SaveSession persists a chat's navigator session by chat_id.
func (m *MongoDB) SaveSession(ctx context.Context, session *greenbot.Session) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(sessionsCollection)

	session.UpdatedAt = time.Now()

	filter := bson.D{{"chat_id", session.ChatID}}
	update := bson.D{{"$set", session}}
	opts := options.Update().SetUpsert(true)

	_, err = collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// LoadSession retrieves a chat's session, or nil when there is none.
func (m *MongoDB) LoadSession(ctx context.Context, chatID string) (*greenbot.Session, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(sessionsCollection)

	var session greenbot.Session
	err = collection.FindOne(ctx, bson.D{{"chat_id", chatID}}).Decode(&session)
	if err != nil {
		return nil, m.findError(err)
	}
	if session.Data == nil {
		session.Data = make(map[string]any)
	}
	return &session, nil
}

// DeleteSession removes a chat's session.
func (m *MongoDB) DeleteSession(ctx context.Context, chatID string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(sessionsCollection)

	_, err = collection.DeleteOne(ctx, bson.D{{"chat_id", chatID}})
	return err
}
