package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wharfbuild/wharf/internal/config"
	"github.com/wharfbuild/wharf/internal/logging"
	"github.com/wharfbuild/wharf/internal/publish"
)

func publishCmd() *cobra.Command {
	var (
		bucket string
		prefix string
		region string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the built bundle to object storage",
		Long: `Upload the built bundle to an S3 bucket, file by file, with
content types by extension and immutable cache headers for hashed names.

Credentials and region come from the environment (or .env); the bucket
from wharf.json or --bucket.

Examples:
  wharf publish
  wharf publish --bucket=releases --prefix=myapp/v1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(bucket, prefix, region)
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "Destination bucket (default from wharf.json)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Key prefix (default from wharf.json)")
	cmd.Flags().StringVar(&region, "region", "", "Region override")

	return cmd
}

func runPublish(bucket, prefix, region string) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}
	if bucket == "" {
		bucket = cfg.Publish.Bucket
	}
	if prefix == "" {
		prefix = cfg.Publish.Prefix
	}
	if region == "" {
		region = cfg.Publish.Region
	}

	ctx, cancel := signalContext()
	defer cancel()

	publisher, err := publish.NewPublisher(ctx, publish.Options{
		Bucket: bucket,
		Prefix: prefix,
		Region: region,
	}, logging.New("publish"))
	if err != nil {
		return err
	}

	fmt.Println("  Publishing...")
	fmt.Println()

	result, err := publisher.Publish(ctx, cfg.OutputPath())
	if err != nil {
		return err
	}

	success("Published %d files (%s) in %s",
		result.Files, formatBytes(result.Bytes), result.Duration.Round(1000000))
	info("s3://%s/%s", bucket, prefix)
	fmt.Println()

	return nil
}
