package storage

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const mongoDisconnectTimeout = 5 * time.Second

// MongoDB 持有 client 與預設資料庫
type MongoDB struct {
	*mongo.Database
}

func openMongo(ctx context.Context, uri string, opts Options) (*MongoDB, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid mongodb uri: %w", err)
	}
	dbName := cs.Database
	if dbName == "" {
		dbName = opts.Database
	}

	clientOpts := mongoClientOptions(uri, opts)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := withTimeout(ctx, opts.ServerSelectionTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
		defer cancelDisconnect()
		_ = client.Disconnect(disconnectCtx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDB{Database: client.Database(dbName)}, nil
}

func mongoClientOptions(uri string, opts Options) *options.ClientOptions {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetRetryWrites(opts.RetryWrites).
		SetDialer(&net.Dialer{KeepAlive: opts.KeepAlive})

	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(opts.MinPoolSize)
	}
	if opts.ServerSelectionTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(opts.ServerSelectionTimeout)
	}
	if opts.SocketTimeout > 0 {
		clientOpts.SetSocketTimeout(opts.SocketTimeout)
	}
	if opts.WriteConcern != "" {
		clientOpts.SetWriteConcern(writeConcern(opts.WriteConcern, opts.Journal))
	}

	return clientOpts
}

// writeConcern 接受 "majority" 或數字形式的 w
func writeConcern(w string, journal bool) *writeconcern.WriteConcern {
	wc := &writeconcern.WriteConcern{W: w, Journal: &journal}
	if n, err := strconv.Atoi(w); err == nil {
		wc.W = n
	}
	return wc
}

func (db *MongoDB) Ping(ctx context.Context) error {
	return db.Client().Ping(ctx, readpref.Primary())
}

func (db *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
	defer cancel()
	return db.Client().Disconnect(ctx)
}
