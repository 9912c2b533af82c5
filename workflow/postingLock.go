package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquirePostingLock serializes posting per scope across instances using
// MySQL advisory locks. GET_LOCK is connection-scoped, so this must run
// on the same pinned connection that carries the posting transaction,
// and the lock must outlive the commit.
func AcquirePostingLock(tx *gorm.DB, scope string) error {
	lockName := fmt.Sprintf("posting:%s", scope)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire posting lock for %s", scope)
	}
	return nil
}

func ReleasePostingLock(tx *gorm.DB, scope string) {
	lockName := fmt.Sprintf("posting:%s", scope)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}

func FonogramaLockScope(fonogramaId int) string {
	return fmt.Sprintf("fonograma:%d", fonogramaId)
}

func ProductoraLockScope(productoraId int) string {
	return fmt.Sprintf("productora:%d", productoraId)
}
