package lineage

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lineage-cli/pkg/datalineage"
)

// Movement is one completed source → target data movement.
type Movement struct {
	Location    datalineage.Location
	ProcessName string
	Origin      string
	JobID       string
	Start       time.Time
	End         time.Time
	Source      string
	Target      string
}

// Validate checks the fields CreateLineage needs.
func (m Movement) Validate() error {
	switch {
	case m.Location.Project == "" || m.Location.Region == "":
		return eris.New("lineage: project and region are required")
	case m.ProcessName == "":
		return eris.New("lineage: process name is required")
	case m.Source == "" || m.Target == "":
		return eris.New("lineage: source and target are required")
	case m.Start.IsZero():
		return eris.New("lineage: start time is required")
	case !m.End.IsZero() && m.End.Before(m.Start):
		return eris.Errorf("lineage: end %s is before start %s", datalineage.Timestamp(m.End), datalineage.Timestamp(m.Start))
	}
	return nil
}

// RunName is the job id, or ManualRun when no job id was given.
func (m Movement) RunName() string {
	if m.JobID != "" {
		return m.JobID
	}
	return ManualRun
}

func (m Movement) end() time.Time {
	if m.End.IsZero() {
		return m.Start
	}
	return m.End
}
