package cli

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/insightdash/internal/api"
)

// NewDatasetsCommand creates the datasets command group.
func NewDatasetsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "List, upload and delete datasets",
	}
	cmd.AddCommand(newDatasetsListCommand(rootOpts))
	cmd.AddCommand(newDatasetsGetCommand(rootOpts))
	cmd.AddCommand(newDatasetsUploadCommand(rootOpts))
	cmd.AddCommand(newDatasetsDeleteCommand(rootOpts))
	return cmd
}

func newDatasetsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the organization's datasets",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				ds, err := a.bindings.Datasets(ctx)
				if err != nil {
					return err
				}
				return a.out.Render(ds, func(w io.Writer) error { return renderDatasets(w, ds) })
			})
		},
	}
}

func newDatasetsGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a dataset and its preview",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				d, err := a.bindings.Dataset(ctx, args[0])
				if err != nil {
					return err
				}
				return a.out.Render(d, func(w io.Writer) error { return renderDatasetDetail(w, d) })
			})
		},
	}
}

// uploadTypes are the content types the upload endpoint accepts.
var uploadTypes = map[string]string{
	".csv":  "text/csv",
	".json": "application/json",
}

// contentType picks the upload content type from the file extension.
func contentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := uploadTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if media, _, err := mime.ParseMediaType(t); err == nil {
			return media
		}
	}
	return "application/octet-stream"
}

func newDatasetsUploadCommand(rootOpts *RootOptions) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a CSV or JSON file as a new dataset",
		Long: `Upload a CSV or JSON file as a new dataset.

Files larger than INSIGHTDASH_UPLOAD_MAX_MB are rejected before anything is
sent. Progress is reported with --verbose. Interrupting the command cancels
the upload.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				return uploadDataset(ctx, a, args[0], typ)
			})
		},
	}
	cmd.Flags().StringVar(&typ, "content-type", "", "content type (default: from the file extension)")
	return cmd
}

func uploadDataset(ctx context.Context, a *app, path, typ string) error {
	f, err := os.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open file", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to stat file", err)
	}

	name := filepath.Base(path)
	if typ == "" {
		typ = contentType(name)
	}
	a.out.Verbosef("uploading %s (%s, %d bytes)", name, typ, info.Size())

	res, err := a.bindings.UploadDataset(ctx, api.UploadFile{
		Name:        name,
		ContentType: typ,
		Size:        info.Size(),
		Reader:      f,
	}, api.UploadOptions{
		OnProgress: func(loaded, total int64, percentage int) {
			a.logger.Debug("upload progress", "file", name, "loaded", loaded, "total", total, "percentage", percentage)
		},
	})
	if err != nil {
		return err
	}
	return a.out.Render(res, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Uploaded %s as %s\n", name, res.DatasetID)
		return err
	})
}

func newDatasetsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a dataset",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app) error {
				if err := a.bindings.DeleteDataset(ctx, args[0]); err != nil {
					return err
				}
				return a.out.Render(map[string]string{"id": args[0]}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Deleted dataset %s\n", args[0])
					return err
				})
			})
		},
	}
}
