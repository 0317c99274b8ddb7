package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jo-hoe/imgcompressor/internal/backend/compression"
	"github.com/jo-hoe/imgcompressor/internal/backend/imagecodec"
	"github.com/jo-hoe/imgcompressor/internal/common"
	"github.com/spf13/cobra"
)

type compressOptions struct {
	output   string
	quality  int
	format   string
	maxWidth int
	mimeType string
	filter   string
}

// NewCompressCommand returns the root command of the compress CLI.
// It runs the same pipeline as the HTTP endpoint against a local file.
func NewCompressCommand() *cobra.Command {
	opts := &compressOptions{}

	cmd := &cobra.Command{
		Use:          "compress <input>",
		Short:        "Compress an image file the same way the backend does",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompress(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "output path (default: compressed-<input> next to the input)")
	flags.IntVarP(&opts.quality, "quality", "q", compression.DefaultQuality, "encoder quality, clamped to [40, 95]")
	flags.StringVarP(&opts.format, "format", "f", compression.DefaultFormat.String(), "output format: jpeg, png or webp")
	flags.IntVar(&opts.maxWidth, "max-width", compression.DefaultMaxWidth, "resize images wider than this")
	flags.StringVar(&opts.mimeType, "mime", "", "declared MIME type of the input (default: derived from the file extension)")
	flags.StringVar(&opts.filter, "filter", "lanczos", "resample filter: lanczos, catmullrom, linear, box, nearest")

	return cmd
}

func runCompress(cmd *cobra.Command, input string, opts *compressOptions) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", input, err)
	}

	mimeType := opts.mimeType
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(input))
	}

	filename := common.BaseFilename(input)
	upload := compression.Upload{
		Data:     data,
		MIMEType: mimeType,
		Filename: filename,
		Size:     int64(len(data)),
	}
	req := compression.NewRequest(compression.DefaultDefaults(), map[string]string{
		compression.ParamQuality:  strconv.Itoa(opts.quality),
		compression.ParamFormat:   opts.format,
		compression.ParamMaxWidth: strconv.Itoa(opts.maxWidth),
	})

	compressor := compression.NewCompressor(imagecodec.NewCodec(imagecodec.WithResampleFilter(opts.filter)))
	result, err := compressor.Compress(cmd.Context(), upload, req)
	if err != nil {
		return err
	}

	output := opts.output
	if output == "" {
		output = filepath.Join(filepath.Dir(input), "compressed-"+filename)
	}
	if err := os.WriteFile(output, result.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	out := cmd.OutOrStdout()
	if result.Compressed {
		fmt.Fprintf(out, "%s: %d -> %d bytes (%s, %dx%d, quality %g)\n",
			output, result.OriginalSize, result.Size, result.Format, result.Width, result.Height, req.Quality)
	} else {
		fmt.Fprintf(out, "%s: original kept (already optimized), %d bytes\n", output, result.Size)
	}
	return nil
}
