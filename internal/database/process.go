package repository

import (
	"context"
	"fmt"
	"log/slog"

	"GreenBot/bot/greenbot"
	"GreenBot/entity"
	"GreenBot/internal/lib/sl"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FindProcess returns the process with the given id, or nil when absent.
func (m *MongoDB) FindProcess(ctx context.Context, id string) (*entity.Process, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(processesCollection)

	var process entity.Process
	err = collection.FindOne(ctx, bson.D{{"_id", id}}).Decode(&process)
	if err != nil {
		return nil, m.findError(err)
	}
	return &process, nil
}

// SaveProcess replaces the whole process document, inserting it if absent.
// A single replace either stores the new document or leaves the old one.
func (m *MongoDB) SaveProcess(ctx context.Context, process *entity.Process) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(processesCollection)

	if process.Steps == nil {
		process.Steps = []entity.Step{}
	}
	opts := options.Replace().SetUpsert(true)
	_, err = collection.ReplaceOne(ctx, bson.D{{"_id", process.ID}}, process, opts)
	if err != nil {
		return fmt.Errorf("mongodb replace error: %w", err)
	}
	return nil
}

// UpdateProcess sets the patched fields and returns the updated document,
// or nil when the process does not exist.
func (m *MongoDB) UpdateProcess(ctx context.Context, id string, patch map[string]any) (*entity.Process, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(processesCollection)

	set := bson.D{}
	for k, v := range patch {
		set = append(set, bson.E{Key: k, Value: v})
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var process entity.Process
	err = collection.FindOneAndUpdate(ctx, bson.D{{"_id", id}}, bson.D{{"$set", set}}, opts).Decode(&process)
	if err != nil {
		return nil, m.findError(err)
	}
	return &process, nil
}

// DeleteProcess removes the process, its answers and the answer files.
func (m *MongoDB) DeleteProcess(ctx context.Context, id string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	db := connection.Database(m.database)

	if _, err = db.Collection(processesCollection).DeleteOne(ctx, bson.D{{"_id", id}}); err != nil {
		return fmt.Errorf("mongodb delete error: %w", err)
	}
	res, err := db.Collection(answersCollection).DeleteMany(ctx, bson.D{{"process_id", id}})
	if err != nil {
		return fmt.Errorf("mongodb delete answers error: %w", err)
	}
	files, err := m.deleteProcessFiles(ctx, db, id)
	if err != nil {
		m.log.With(
			slog.String("process_id", id),
			sl.Err(err),
		).Warn("delete answer files")
	}

	m.log.With(
		slog.String("process_id", id),
		slog.Int64("answers", res.DeletedCount),
		slog.Int("files", files),
	).Debug("process deleted")
	return nil
}

// ListProcesses returns processes matching the filter, most recently
// updated first.
func (m *MongoDB) ListProcesses(ctx context.Context, filter greenbot.ProcessFilter) ([]entity.Process, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(processesCollection)

	query := bson.D{}
	if filter.Published != nil {
		query = append(query, bson.E{Key: "is_finished", Value: *filter.Published})
	}
	if filter.AuthorChatID != "" {
		query = append(query, bson.E{Key: "author_chat_id", Value: filter.AuthorChatID})
	}
	opts := options.Find().SetSort(bson.D{{"updated_at", -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find error: %w", err)
	}
	defer cursor.Close(ctx)

	var processes []entity.Process
	if err = cursor.All(ctx, &processes); err != nil {
		return nil, fmt.Errorf("mongodb decode error: %w", err)
	}
	return processes, nil
}
