package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/okian/facepunch/internal/adapters/mq/worker"
	"github.com/okian/facepunch/internal/domain/types"
	"github.com/spf13/cobra"
)

func newEnrollCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "enroll <request.json>",
		Short: "Enroll a user from a file of precomputed face embeddings",
		Long: `Reads a JSON document shaped like the body of POST /users:

  {"user_id": "U1", "name": "Ada", "department": "R&D", "frames": [{"faces": [[...]]}, ...]}

Frames with exactly one face of the configured embedding dimension count as
samples. Enrolling an existing user id replaces their embedding.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var req types.EnrollRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			svc, err := opts.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Stop()

			frames := make([]worker.Frame, len(req.Frames))
			for i, f := range req.Frames {
				frames[i] = worker.Frame{Faces: f.Embeddings()}
			}
			user, err := svc.Enroll(cmd.Context(), req.Profile(), worker.NewSliceCamera(frames...), worker.Precomputed{})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enrolled %s (%s)\n", user.ID, user.Name)
			return nil
		},
	}
}
