package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Lllllllleong/pitchflow/internal/models"
	"github.com/Lllllllleong/pitchflow/internal/services"
	"github.com/Lllllllleong/pitchflow/internal/wizard"
	"github.com/spf13/cobra"
)

var (
	validateStep    int
	validateProfile string

	deleteActorID   string
	deleteActorRole string

	submitActorID  string
	submitRole     string
	submitEditID   string
	submitIssuerID string
	submitDraft    bool
	coverPath      string
	deckPath       string
	docPaths       []string
)

// validateCmd checks a saved form against one wizard step
var validateCmd = &cobra.Command{
	Use:   "validate <form.json>",
	Short: "Validate a wizard form file",
	Long: `Validate a JSON-encoded wizard form against a single step, or against
every blocking step when --step is -1.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

// submitCmd walks a form file through the wizard and saves it
var submitCmd = &cobra.Command{
	Use:   "submit <form.json>",
	Short: "Run a form file through the wizard and save it",
	Long: `Submit loads a JSON-encoded wizard form, attaches the given files and
advances through every wizard step, uploading and publishing the pitch
when the last step passes. With --draft the form is saved as a draft as
it is, without step validation.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

// deleteDraftCmd removes a draft and its files
var deleteDraftCmd = &cobra.Command{
	Use:   "delete-draft <projectId>",
	Short: "Delete a draft pitch and its stored files",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteDraft,
}

// notifyCmd re-runs the investor notification fan-out
var notifyCmd = &cobra.Command{
	Use:   "notify <projectId> [projectName]",
	Short: "Notify voters and pledgers of a project",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runNotify,
}

func init() {
	validateCmd.Flags().IntVar(&validateStep, "step", -1, "wizard step (0-4), -1 for all")
	validateCmd.Flags().StringVar(&validateProfile, "profile", os.Getenv("PITCH_PROFILE"), "deployment profile YAML")
	submitCmd.Flags().StringVar(&submitActorID, "actor", "", "id of the acting user")
	submitCmd.Flags().StringVar(&submitRole, "role", string(models.RoleIssuer), "role of the acting user")
	submitCmd.Flags().StringVar(&submitEditID, "edit", "", "id of the record to edit")
	submitCmd.Flags().StringVar(&submitIssuerID, "issuer", "", "issuer to create the record for (admins only)")
	submitCmd.Flags().BoolVar(&submitDraft, "draft", false, "save as draft instead of publishing")
	submitCmd.Flags().StringVar(&coverPath, "cover", "", "cover image or video file")
	submitCmd.Flags().StringVar(&deckPath, "deck", "", "presentation document")
	submitCmd.Flags().StringSliceVar(&docPaths, "doc", nil, "supporting document (repeatable)")
	_ = submitCmd.MarkFlagRequired("actor")

	deleteDraftCmd.Flags().StringVar(&deleteActorID, "actor", "", "id of the acting user")
	deleteDraftCmd.Flags().StringVar(&deleteActorRole, "role", string(models.RoleAdmin), "role of the acting user")
	_ = deleteDraftCmd.MarkFlagRequired("actor")
}

func runValidate(cmd *cobra.Command, args []string) error {
	profile, err := wizard.LoadProfile(validateProfile)
	if err != nil {
		return err
	}
	form, err := readForm(args[0])
	if err != nil {
		return err
	}

	v := wizard.NewValidator(profile)
	var res models.ValidationResult
	if validateStep < 0 {
		res = v.ValidateAll(&form, models.EditContext{})
	} else {
		res = v.Validate(models.Step(validateStep), &form, models.EditContext{})
	}
	out := cmd.OutOrStdout()
	if !res.OK {
		fmt.Fprintf(out, "FAIL %s\n", res.Reason)
		return fmt.Errorf("form is not valid")
	}
	fmt.Fprintln(out, "OK")
	return nil
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	form, err := readForm(args[0])
	if err != nil {
		return err
	}
	submitter, err := services.NewPitchSubmitter(ctx)
	if err != nil {
		return err
	}
	actor := models.Actor{ID: submitActorID, Role: models.Role(submitRole)}
	session, err := submitter.OpenSession(ctx, actor, submitEditID, submitIssuerID)
	if err != nil {
		return err
	}
	defer session.Detach()

	session.Update(func(f *models.FormState) {
		// Attachments already stored come from the record, not the file.
		form.ExistingCover, form.ExistingSupporting, form.ExistingPresentation = f.ExistingCover, f.ExistingSupporting, f.ExistingPresentation
		form.Step = models.StepGeneralInfo
		*f = form
	})
	selections := []struct {
		slot  models.Slot
		paths []string
	}{
		{models.SlotCover, nonEmpty(coverPath)},
		{models.SlotSupporting, docPaths},
		{models.SlotPresentation, nonEmpty(deckPath)},
	}
	for _, sel := range selections {
		for _, path := range sel.paths {
			file, err := localFile(path)
			if err != nil {
				return err
			}
			if err := session.AddFile(sel.slot, file); err != nil {
				return err
			}
		}
	}

	return driveSession(ctx, session, submitDraft, cmd.OutOrStdout())
}

// driveSession saves a draft straight away, or advances step by step until
// the wizard publishes.
func driveSession(ctx context.Context, session *wizard.Session, draft bool, out io.Writer) error {
	if draft {
		if err := session.SaveDraft(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "saved draft")
		return nil
	}
	for {
		step := session.Form().Step
		res, err := session.Advance(ctx)
		if err != nil {
			return err
		}
		if !res.OK {
			fmt.Fprintf(out, "FAIL %s at %s\n", res.Reason, step)
			return fmt.Errorf("form is not valid")
		}
		fmt.Fprintf(out, "passed %s\n", step)
		if res.Submit {
			fmt.Fprintln(out, "saved")
			return nil
		}
	}
}

func readForm(path string) (models.FormState, error) {
	form := models.NewFormState()
	raw, err := os.ReadFile(path)
	if err != nil {
		return form, fmt.Errorf("failed to read form: %w", err)
	}
	if err := json.Unmarshal(raw, &form); err != nil {
		return form, fmt.Errorf("failed to parse form: %w", err)
	}
	return form, nil
}

func localFile(path string) (models.PendingFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.PendingFile{}, err
	}
	file := models.PendingFile{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
	file.ContentType = wizard.ContentType(file)
	return file, nil
}

func nonEmpty(path string) []string {
	if path == "" {
		return nil
	}
	return []string{path}
}

func runDeleteDraft(cmd *cobra.Command, args []string) error {
	deleter, err := services.NewDraftDeleterFromEnv(cmd.Context())
	if err != nil {
		return err
	}
	res, err := deleter.Process(cmd.Context(), &models.DeleteDraftRequest{
		Actor:     models.Actor{ID: deleteActorID, Role: models.Role(deleteActorRole)},
		ProjectID: args[0],
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (%d files)\n", args[0], res.BlobsDeleted)
	return nil
}

func runNotify(cmd *cobra.Command, args []string) error {
	notifier, err := services.NewNotifierFromEnv(cmd.Context())
	if err != nil {
		return err
	}
	name := ""
	if len(args) > 1 {
		name = args[1]
	}
	res, err := notifier.Notify(cmd.Context(), args[0], name)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "recipients=%d sent=%d failed=%d\n", len(res.Recipients), res.Sent, res.Failed)
	return nil
}
