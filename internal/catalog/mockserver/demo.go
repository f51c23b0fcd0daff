package mockserver

import (
	"strings"

	"github.com/kart-io/catalog-console/internal/model"
)

// SeedDemo loads two projects with artifacts in every status, including one
// whose content exceeds the default content cap.
func (s *Server) SeedDemo() error {
	docs := s.store.createProject("Docs")
	ops := s.store.createProject("Ops")

	seeds := []struct {
		projectID int64
		typ       string
		title     string
		content   string
		status    model.ArtifactStatus
	}{
		{docs.ID, "guide", "Getting started", "# Getting started\n\nInstall the agent.\n\nRun `agent init` to configure it.", model.StatusApproved},
		{docs.ID, "faq", "Why is my search empty?", "Search defaults to APPROVED artifacts.\n\nPick another status to widen it.", model.StatusApproved},
		{docs.ID, "guide", "Draft notes", "Work in progress.", model.StatusDraft},
		{docs.ID, "reference", "Full manual", strings.Repeat("Manual paragraph text.\n\n", 400), model.StatusApproved},
		{ops.ID, "runbook", "Restart the indexer", "1. Drain traffic\n2. Restart\n3. Reindex", model.StatusDeprecated},
	}

	for _, sd := range seeds {
		a, err := s.store.createArtifact(model.CreateArtifactRequest{
			ProjectID: sd.projectID,
			Type:      sd.typ,
			Title:     sd.title,
			Content:   sd.content,
		})
		if err != nil {
			return err
		}
		if sd.status != model.StatusDraft {
			if err := s.store.setStatus(a.ID, sd.status); err != nil {
				return err
			}
		}
	}
	return nil
}
