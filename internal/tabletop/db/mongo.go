package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo dials the document store and pings it. When dbName is empty the
// database is taken from the URI path, e.g. mongodb://localhost:27017/board_games.
func ConnectMongo(ctx context.Context, mongoURI, dbName string) (*mongo.Database, error) {
	if dbName == "" {
		uri, err := url.Parse(mongoURI)
		if err != nil {
			return nil, fmt.Errorf("parse mongodb uri: %w", err)
		}
		dbName = strings.TrimPrefix(uri.Path, "/")
	}
	if dbName == "" {
		return nil, fmt.Errorf("mongodb database name is not set")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return client.Database(dbName), nil
}
