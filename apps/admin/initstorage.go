package main

import (
	"context"

	"github.com/jkazadi/kampus/core"
	storagesvc "github.com/jkazadi/kampus/services/storage"
)

// initStorage provisions every bucket the app writes to.
func (cli *commandLine) initStorage() error {
	ctx := context.Background()
	storage, err := storagesvc.NewS3Storage(ctx, cli.conf)
	if err != nil {
		return err
	}
	for _, bucket := range core.AllBuckets {
		if err := storage.EnsureBucket(ctx, bucket); err != nil {
			return err
		}
		logger.Printf("bucket %q ready", bucket)
	}
	return nil
}
