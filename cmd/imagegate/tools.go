package main

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/imagegate/imagegate/internal/config"
	"github.com/imagegate/imagegate/internal/metrics"
	"github.com/imagegate/imagegate/internal/transcode"
	"github.com/imagegate/imagegate/internal/uploader"
)

const serverVersion = "1.0.0"

// gateway holds the wired dependencies behind the MCP tools.
type gateway struct {
	cfg      *config.Config
	uploader *uploader.Uploader
}

// serve registers the tools and runs the MCP server on stdio until ctx is
// done or the client disconnects.
func (g *gateway) serve(ctx context.Context) error {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "imagegate",
		Version: serverVersion,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "upload_image",
		Description: "Upload a single image file to object storage and return its public URL. Optionally optimizes the image (resize + recompress) before upload.",
	}, g.uploadImage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "upload_images",
		Description: "Upload multiple images concurrently with per-item retry and partial-success reporting. One file's failure never aborts the others.",
	}, g.uploadImages)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_buckets",
		Description: "List all object-storage buckets accessible with the configured credentials.",
	}, g.listBuckets)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "server_info",
		Description: "Report the gateway's backend, default bucket, supported formats, and limits.",
	}, g.serverInfo)

	log.Info().Msg("MCP server listening on stdio")
	return server.Run(ctx, &mcp.StdioTransport{})
}

// --- upload_image ---

type uploadImageArgs struct {
	FilePath     string `json:"filePath" jsonschema:"Path to the image file to upload"`
	Bucket       string `json:"bucket,omitempty" jsonschema:"Target bucket (default: configured bucket)"`
	Key          string `json:"key,omitempty" jsonschema:"Object key (derived from filename and content hash if omitted)"`
	FolderPrefix string `json:"folderPrefix,omitempty" jsonschema:"Key prefix for derived keys"`
	Optimize     *bool  `json:"optimize,omitempty" jsonschema:"Optimize the image before upload (default: true)"`
	Quality      *int   `json:"quality,omitempty" jsonschema:"Compression quality 1-100 (default: 80)"`
	MaxWidth     *int   `json:"maxWidth,omitempty" jsonschema:"Maximum width in pixels (default: 1920)"`
	MaxHeight    *int   `json:"maxHeight,omitempty" jsonschema:"Maximum height in pixels (default: 1080)"`
}

func (g *gateway) uploadImage(ctx context.Context, req *mcp.CallToolRequest, args uploadImageArgs) (*mcp.CallToolResult, uploader.Outcome, error) {
	if args.FilePath == "" {
		return nil, uploader.Outcome{}, fmt.Errorf("filePath must not be empty")
	}

	opts, err := g.options(args.Bucket, args.Optimize, args.Quality, args.MaxWidth, args.MaxHeight)
	if err != nil {
		return nil, uploader.Outcome{}, err
	}

	item := uploader.Item{
		SourcePath:     args.FilePath,
		DestinationKey: args.Key,
		FolderPrefix:   args.FolderPrefix,
	}

	outcome, err := g.uploader.UploadSingle(ctx, item, opts)
	if err != nil {
		return nil, uploader.Outcome{}, err
	}

	rec := metrics.New("upload_image")
	rec.Metric("DurationMs", float64(outcome.DurationMs), metrics.UnitMilliseconds)
	rec.Metric("Bytes", float64(outcome.BytesTransferred), metrics.UnitBytes)
	if outcome.Success {
		rec.Count("Succeeded")
	} else {
		rec.Count("Failed")
		rec.Property("errorKind", string(outcome.ErrorKind))
	}
	rec.Flush()

	return nil, outcome, nil
}

// --- upload_images ---

type uploadImagesArgs struct {
	FilePaths    []string `json:"filePaths" jsonschema:"Paths of the image files to upload"`
	Bucket       string   `json:"bucket,omitempty" jsonschema:"Target bucket (default: configured bucket)"`
	FolderPrefix string   `json:"folderPrefix,omitempty" jsonschema:"Key prefix for derived keys"`
	Optimize     *bool    `json:"optimize,omitempty" jsonschema:"Optimize images before upload (default: true)"`
	Quality      *int     `json:"quality,omitempty" jsonschema:"Compression quality 1-100 (default: 80)"`
	MaxWidth     *int     `json:"maxWidth,omitempty" jsonschema:"Maximum width in pixels (default: 1920)"`
	MaxHeight    *int     `json:"maxHeight,omitempty" jsonschema:"Maximum height in pixels (default: 1080)"`
	Concurrency  *int     `json:"concurrency,omitempty" jsonschema:"Parallel upload limit (default: 5, capped at 10)"`
}

func (g *gateway) uploadImages(ctx context.Context, req *mcp.CallToolRequest, args uploadImagesArgs) (*mcp.CallToolResult, *uploader.BatchResult, error) {
	opts, err := g.options(args.Bucket, args.Optimize, args.Quality, args.MaxWidth, args.MaxHeight)
	if err != nil {
		return nil, nil, err
	}
	if args.Concurrency != nil {
		opts.Concurrency = *args.Concurrency
	}

	items := make([]uploader.Item, len(args.FilePaths))
	for i, p := range args.FilePaths {
		items[i] = uploader.Item{SourcePath: p, FolderPrefix: args.FolderPrefix}
	}

	result, err := g.uploader.UploadBatch(ctx, items, opts, g.progressSink(ctx, req))
	if err != nil {
		return nil, nil, err
	}

	rec := metrics.New("upload_images")
	rec.Metric("Total", float64(result.Total), metrics.UnitCount)
	rec.Metric("Succeeded", float64(result.Succeeded), metrics.UnitCount)
	rec.Metric("Failed", float64(result.Failed), metrics.UnitCount)
	rec.Metric("Bytes", float64(result.BytesTransferred), metrics.UnitBytes)
	rec.Metric("DurationMs", float64(result.DurationMs), metrics.UnitMilliseconds)
	rec.Property("circuitTripped", result.CircuitTripped)
	rec.Flush()

	return nil, result, nil
}

// progressSink forwards completion notifications to the MCP client when the
// request carries a progress token, and logs them otherwise.
func (g *gateway) progressSink(ctx context.Context, req *mcp.CallToolRequest) uploader.ProgressSink {
	token := req.Params.GetProgressToken()
	if token == nil {
		return uploader.LogSink()
	}
	return uploader.ProgressFunc(func(p uploader.Progress) {
		err := req.Session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
			ProgressToken: token,
			Progress:      float64(p.Completed),
			Total:         float64(p.Total),
			Message:       fmt.Sprintf("%d/%d uploaded, last: %s", p.Completed, p.Total, p.Outcome.SourcePath),
		})
		if err != nil {
			log.Debug().Err(err).Msg("Progress notification failed")
		}
	})
}

// --- list_buckets ---

type listBucketsArgs struct{}

type listBucketsResult struct {
	Buckets []string `json:"buckets"`
	Count   int      `json:"count"`
}

func (g *gateway) listBuckets(ctx context.Context, req *mcp.CallToolRequest, args listBucketsArgs) (*mcp.CallToolResult, listBucketsResult, error) {
	buckets, err := g.uploader.ListBuckets(ctx)
	if err != nil {
		return nil, listBucketsResult{}, fmt.Errorf("list buckets: %w", err)
	}
	return nil, listBucketsResult{Buckets: buckets, Count: len(buckets)}, nil
}

// --- server_info ---

type serverInfoArgs struct{}

type serverInfoResult struct {
	Name             string   `json:"name"`
	Version          string   `json:"version"`
	Backend          string   `json:"backend"`
	Region           string   `json:"region,omitempty"`
	Bucket           string   `json:"bucket,omitempty"`
	SupportedFormats []string `json:"supportedFormats"`
	MaxFileSize      int64    `json:"maxFileSize"`
	MaxConcurrency   int      `json:"maxConcurrency"`
}

func (g *gateway) serverInfo(ctx context.Context, req *mcp.CallToolRequest, args serverInfoArgs) (*mcp.CallToolResult, serverInfoResult, error) {
	return nil, serverInfoResult{
		Name:             "imagegate",
		Version:          serverVersion,
		Backend:          g.cfg.Backend,
		Region:           g.cfg.Region,
		Bucket:           g.cfg.Bucket,
		SupportedFormats: transcode.SupportedExtensions(),
		MaxFileSize:      g.cfg.MaxFileSize,
		MaxConcurrency:   config.MaxConcurrency,
	}, nil
}

// options resolves per-call overrides against the configured defaults.
func (g *gateway) options(bucket string, optimize *bool, quality, maxWidth, maxHeight *int) (uploader.Options, error) {
	opts := uploader.Options{
		Bucket:    g.cfg.Bucket,
		Optimize:  g.cfg.Optimize,
		Quality:   g.cfg.Quality,
		MaxWidth:  g.cfg.MaxWidth,
		MaxHeight: g.cfg.MaxHeight,
	}
	if bucket != "" {
		opts.Bucket = bucket
	}
	if optimize != nil {
		opts.Optimize = *optimize
	}
	if quality != nil {
		opts.Quality = *quality
	}
	if maxWidth != nil {
		opts.MaxWidth = *maxWidth
	}
	if maxHeight != nil {
		opts.MaxHeight = *maxHeight
	}
	if opts.Bucket == "" {
		return uploader.Options{}, fmt.Errorf("no bucket configured: set IMAGEGATE_BUCKET or pass bucket")
	}
	return opts, nil
}
