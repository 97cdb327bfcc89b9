package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/internal/cli"
	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/config"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

func processCmd() *cobra.Command {
	var (
		voicePath string
		photoPath string
		videoPath string
		noInput   bool
	)

	cmd := &cobra.Command{
		Use:   "process [text...]",
		Short: "Record an expense from text, voice, a photo, or a video",
		Long: `Process one expense input end to end: normalize it, extract the expense,
validate it, categorize it, and save it.

Examples:
  ledgerlens process "lunch at the corner deli, $12.50"
  ledgerlens process --voice memo.ogg
  ledgerlens process --photo receipt.jpg
  ledgerlens process --video checkout.mp4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := buildRawInput(args, voicePath, photoPath, videoPath)
			if err != nil {
				return err
			}
			return runProcess(cmd, input, noInput)
		},
	}

	cmd.Flags().StringVar(&voicePath, "voice", "", "path to a voice memo (ogg, mp3, m4a, wav)")
	cmd.Flags().StringVar(&photoPath, "photo", "", "path to a receipt photo (jpg, png, webp)")
	cmd.Flags().StringVar(&videoPath, "video", "", "path to a short video (mp4, mov, webm)")
	cmd.Flags().BoolVar(&noInput, "no-input", false, "never prompt; print ambiguous fields and exit")

	return cmd
}

func runProcess(cmd *cobra.Command, input model.RawInput, noInput bool) error {
	ctx := cmd.Context()

	settings, err := config.Load()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	profile, err := loadProfile(ctx, store, settings)
	if err != nil {
		return err
	}

	pipe, cleanup, err := buildPipeline(ctx, settings, store)
	if err != nil {
		return err
	}
	defer cleanup()

	outcome := pipe.Process(ctx, input, profile)

	// Give the user a chance to fix ambiguous fields interactively.
	if outcome.Status == model.OutcomeNeedsConfirmation && !noInput {
		fmt.Println(cli.RenderOutcome(outcome))

		corrector := cli.NewCorrector(os.Stdin, os.Stdout)
		corrections, err := corrector.Collect(ctx, outcome)
		if err != nil {
			return err
		}
		outcome = pipe.ProcessCorrection(ctx, *outcome.Candidate, corrections, profile, input.CapturedAt)
	}

	if outcome.Status == model.OutcomeAccepted {
		if err := store.SaveExpense(ctx, profile.UserID, outcome.Resolved); err != nil {
			return fmt.Errorf("failed to save expense: %w", err)
		}
	}

	fmt.Println(cli.RenderOutcome(outcome))

	if outcome.Status == model.OutcomeRejected {
		return fmt.Errorf("expense not recorded (%s)", outcome.Reason)
	}
	return nil
}

// buildRawInput assembles a RawInput from the command line. Exactly one
// input source may be given.
func buildRawInput(args []string, voicePath, photoPath, videoPath string) (model.RawInput, error) {
	input := model.RawInput{
		ID:         uuid.NewString(),
		CapturedAt: time.Now().UTC(),
	}

	sources := 0
	if len(args) > 0 {
		sources++
	}
	for _, path := range []string{voicePath, photoPath, videoPath} {
		if path != "" {
			sources++
		}
	}
	if sources != 1 {
		return input, fmt.Errorf("provide exactly one input: text, --voice, --photo, or --video")
	}

	switch {
	case len(args) > 0:
		input.Modality = model.ModalityText
		input.Text = strings.Join(args, " ")
	case voicePath != "":
		return loadMediaInput(input, voicePath, model.ModalityVoice, audioMimeTypes)
	case photoPath != "":
		return loadMediaInput(input, photoPath, model.ModalityPhoto, imageMimeTypes)
	case videoPath != "":
		return loadMediaInput(input, videoPath, model.ModalityVideo, videoMimeTypes)
	}
	return input, nil
}

var (
	audioMimeTypes = map[string]string{
		".ogg":  "audio/ogg",
		".oga":  "audio/ogg",
		".mp3":  "audio/mpeg",
		".m4a":  "audio/mp4",
		".wav":  "audio/wav",
		".webm": "audio/webm",
	}
	imageMimeTypes = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".webp": "image/webp",
	}
	videoMimeTypes = map[string]string{
		".mp4":  "video/mp4",
		".mov":  "video/quicktime",
		".webm": "video/webm",
		".mkv":  "video/x-matroska",
	}
)

func loadMediaInput(input model.RawInput, path string, modality model.Modality, mimeTypes map[string]string) (model.RawInput, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mimeType, ok := mimeTypes[ext]
	if !ok {
		return input, fmt.Errorf("unsupported %s file type: %s", modality, ext)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return input, common.NewUserError(fmt.Sprintf("could not read %s", path), err)
	}
	if len(data) == 0 {
		return input, fmt.Errorf("%s is empty", path)
	}

	input.Modality = modality
	input.MimeType = mimeType
	input.Data = data
	return input, nil
}
