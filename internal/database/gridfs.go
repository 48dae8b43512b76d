package repository

import (
	"context"
	"fmt"
	"io"

	"GreenBot/bot/chat"
	"GreenBot/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FileOpener downloads an uploaded chat file by its platform id.
type FileOpener interface {
	OpenFile(fileID string) (io.ReadCloser, error)
}

// SetFileOpener sets the source ArchiveFile downloads from.
func (m *MongoDB) SetFileOpener(opener FileOpener) {
	m.opener = opener
}

// ArchiveFile copies a chat upload into GridFS and returns its reference.
func (m *MongoDB) ArchiveFile(_ context.Context, file chat.FileInput, meta entity.FileMetadata) (string, error) {
	if m.opener == nil {
		return "", fmt.Errorf("file opener not set")
	}
	if file.Size > entity.MaxFileSize {
		return "", entity.FileTooLargeError(file.FileName, file.Size)
	}
	reader, err := m.opener.OpenFile(file.FileID)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	name := file.FileName
	if name == "" {
		name = file.FileID
	}
	id, _, err := m.UploadFile(name, io.LimitReader(reader, entity.MaxFileSize+1), meta)
	if err != nil {
		return "", err
	}
	return entity.FileRefPrefix + id.Hex(), nil
}

// UploadFile stores a file in GridFS and returns the generated file ID and size.
func (m *MongoDB) UploadFile(filename string, reader io.Reader, meta entity.FileMetadata) (primitive.ObjectID, int64, error) {
	connection, err := m.connect()
	if err != nil {
		return primitive.NilObjectID, 0, err
	}
	defer m.disconnect(connection)

	bucket, err := gridfs.NewBucket(connection.Database(m.database))
	if err != nil {
		return primitive.NilObjectID, 0, fmt.Errorf("gridfs bucket: %w", err)
	}

	uploadOpts := options.GridFSUpload().SetMetadata(meta)
	uploadStream, err := bucket.OpenUploadStream(filename, uploadOpts)
	if err != nil {
		return primitive.NilObjectID, 0, fmt.Errorf("gridfs open upload: %w", err)
	}

	size, err := io.Copy(uploadStream, reader)
	if err != nil {
		_ = uploadStream.Abort()
		return primitive.NilObjectID, 0, fmt.Errorf("gridfs copy: %w", err)
	}
	if size > entity.MaxFileSize {
		_ = uploadStream.Abort()
		return primitive.NilObjectID, 0, entity.FileTooLargeError(filename, size)
	}

	if err := uploadStream.Close(); err != nil {
		return primitive.NilObjectID, 0, fmt.Errorf("gridfs close upload: %w", err)
	}

	fileID := uploadStream.FileID.(primitive.ObjectID)
	return fileID, size, nil
}

// gridfsReadCloser wraps a GridFS download stream and disconnects
// the MongoDB client when closed.
type gridfsReadCloser struct {
	stream     *gridfs.DownloadStream
	disconnect func()
}

func (r *gridfsReadCloser) Read(p []byte) (int, error) {
	return r.stream.Read(p)
}

func (r *gridfsReadCloser) Close() error {
	err := r.stream.Close()
	r.disconnect()
	return err
}

// DownloadFile retrieves a file from GridFS by its hex ID.
// The caller must close the returned ReadCloser to release the MongoDB connection.
func (m *MongoDB) DownloadFile(_ context.Context, id string) (string, entity.FileMetadata, io.ReadCloser, error) {
	fileID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return "", entity.FileMetadata{}, nil, fmt.Errorf("invalid file id: %w", err)
	}
	connection, err := m.connect()
	if err != nil {
		return "", entity.FileMetadata{}, nil, err
	}

	bucket, err := gridfs.NewBucket(connection.Database(m.database))
	if err != nil {
		m.disconnect(connection)
		return "", entity.FileMetadata{}, nil, fmt.Errorf("gridfs bucket: %w", err)
	}

	stream, err := bucket.OpenDownloadStream(fileID)
	if err != nil {
		m.disconnect(connection)
		return "", entity.FileMetadata{}, nil, fmt.Errorf("gridfs open download: %w", err)
	}

	file := stream.GetFile()
	filename := file.Name

	var meta entity.FileMetadata
	if len(file.Metadata) > 0 {
		if err := bson.Unmarshal(file.Metadata, &meta); err != nil {
			m.log.Error("failed to unmarshal gridfs metadata", "error", err.Error())
		}
	}

	reader := &gridfsReadCloser{
		stream:     stream,
		disconnect: func() { m.disconnect(connection) },
	}

	return filename, meta, reader, nil
}

// deleteProcessFiles removes the answer files uploaded for a process.
func (m *MongoDB) deleteProcessFiles(ctx context.Context, db *mongo.Database, processID string) (int, error) {
	bucket, err := gridfs.NewBucket(db)
	if err != nil {
		return 0, fmt.Errorf("gridfs bucket: %w", err)
	}
	cursor, err := bucket.FindContext(ctx, bson.D{{"metadata.process_id", processID}})
	if err != nil {
		return 0, fmt.Errorf("gridfs find: %w", err)
	}
	defer cursor.Close(ctx)

	var files []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cursor.All(ctx, &files); err != nil {
		return 0, fmt.Errorf("gridfs decode: %w", err)
	}
	for _, f := range files {
		if err = bucket.DeleteContext(ctx, f.ID); err != nil {
			return 0, fmt.Errorf("gridfs delete: %w", err)
		}
	}
	return len(files), nil
}
