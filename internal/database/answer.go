package repository

import (
	"context"
	"fmt"

	"GreenBot/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SaveAnswer upserts the answer keyed by (process_id, chat_id, step_id);
// the latest answer replaces an earlier one.
func (m *MongoDB) SaveAnswer(ctx context.Context, answer entity.Answer) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(answersCollection)

	filter := bson.D{
		{"process_id", answer.ProcessID},
		{"chat_id", answer.ChatID},
		{"step_id", answer.StepID},
	}
	update := bson.D{{"$set", answer}}
	opts := options.Update().SetUpsert(true)

	if _, err = collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("mongodb upsert error: %w", err)
	}
	return nil
}

// GetAnswers returns the answers of a process in step order. An empty
// chatID returns the answers of every chat.
func (m *MongoDB) GetAnswers(ctx context.Context, processID, chatID string) ([]entity.Answer, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(answersCollection)

	filter := bson.D{{"process_id", processID}}
	if chatID != "" {
		filter = append(filter, bson.E{Key: "chat_id", Value: chatID})
	}
	opts := options.Find().SetSort(bson.D{{"chat_id", 1}, {"step_index", 1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find error: %w", err)
	}
	defer cursor.Close(ctx)

	var answers []entity.Answer
	if err = cursor.All(ctx, &answers); err != nil {
		return nil, fmt.Errorf("mongodb decode error: %w", err)
	}
	return answers, nil
}
