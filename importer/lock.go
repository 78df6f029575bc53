package importer

import (
	"context"
	"strconv"
	"time"

	"github.com/mmdatafocus/catalog_backend/utils"
)

const (
	runLockType = "import_run"
	runLockTTL  = 5 * time.Minute
)

// RunLocker serializes writers of one import run. The returned func releases
// the lock; a lock held elsewhere is reported as utils.ErrLockNotObtained.
type RunLocker interface {
	LockRun(ctx context.Context, runId uint) (func(), error)
}

// redisRunLocker holds import_run:<id> in redis. Without a redis connection
// every lock succeeds.
type redisRunLocker struct{}

func (redisRunLocker) LockRun(ctx context.Context, runId uint) (func(), error) {
	return utils.ObtainLock(ctx, runLockType, strconv.FormatUint(uint64(runId), 10), runLockTTL, moduleName, "LockRun")
}
