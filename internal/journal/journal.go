package journal

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound — записи нет.
	ErrNotFound = errors.New("journal: entry not found")

	// ErrInvalidKey — в ключе пустое поле.
	ErrInvalidKey = errors.New("journal: invalid key")
)

// Key идентифицирует побочный эффект.
type Key struct {
	ErrandNumber string `json:"errand_number"`
	Task         string `json:"task"`
	Effect       string `json:"effect"`
}

// Validate проверяет, что все поля заполнены.
func (k Key) Validate() error {
	if k.ErrandNumber == "" || k.Task == "" || k.Effect == "" {
		return fmt.Errorf("%w: %s", ErrInvalidKey, k)
	}
	return nil
}

func (k Key) String() string {
	return k.ErrandNumber + "/" + k.Task + "/" + k.Effect
}

// Entry — выполненный эффект.
type Entry struct {
	Key
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store — хранилище журнала.
//
// Put не перезаписывает существующую запись: первая запись выигрывает.
type Store interface {
	Get(ctx context.Context, key Key) (*Entry, error)
	Put(ctx context.Context, entry Entry) error
	List(ctx context.Context, errandNumber string) ([]Entry, error)
	Purge(ctx context.Context, before time.Time) (int64, error)
	Ping(ctx context.Context) error
}

// Once выполняет effect, только если для key ещё нет записи.
//
// Возвращает ссылку на результат и признак того, что эффект уже был выполнен
// ранее. Если effect прошёл, а запись в журнал не удалась, ошибка
// возвращается: повторная доставка задачи выполнит эффект снова.
func Once(ctx context.Context, store Store, key Key, effect func(ctx context.Context) (string, error)) (string, bool, error) {
	if err := key.Validate(); err != nil {
		return "", false, err
	}

	entry, err := store.Get(ctx, key)
	switch {
	case err == nil:
		return entry.Reference, true, nil
	case !errors.Is(err, ErrNotFound):
		return "", false, fmt.Errorf("journal lookup %s: %w", key, err)
	}

	ref, err := effect(ctx)
	if err != nil {
		return "", false, err
	}

	if err := store.Put(ctx, Entry{Key: key, Reference: ref, CreatedAt: time.Now().UTC()}); err != nil {
		return ref, false, fmt.Errorf("journal record %s: %w", key, err)
	}
	return ref, false, nil
}
