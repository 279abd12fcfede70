package job

import (
	"context"

	"github.com/vantor/ragserve/internal/service"
)

// CorpusResyncJob re-runs the incremental corpus sync so documents edited on
// disk after startup get picked up without a restart.
type CorpusResyncJob struct {
	sync *service.CorpusSyncService
	dir  string
}

func NewCorpusResyncJob(sync *service.CorpusSyncService, dir string) *CorpusResyncJob {
	return &CorpusResyncJob{sync: sync, dir: dir}
}

func (j *CorpusResyncJob) Name() string {
	return "corpus_resync"
}

func (j *CorpusResyncJob) Run(ctx context.Context) error {
	return j.sync.Sync(ctx, j.dir)
}
