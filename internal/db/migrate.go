package db

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// RunMigrations применяет все up-миграции из fsys (обычно migrations.FS)
func RunMigrations(dsn string, fsys fs.FS) error {
	if dsn == "" {
		return errors.New("DSN для миграций не может быть пустым")
	}
	if fsys == nil {
		return errors.New("источник миграций не задан")
	}

	src, err := iofs.New(fsys, ".")
	if err != nil {
		return fmt.Errorf("не удалось открыть источник миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("не удалось создать экземпляр мигратора: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка при выполнении миграций: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("ошибка при проверке версии миграций: %w", err)
	}
	if dirty {
		return fmt.Errorf("обнаружена 'грязная' миграция версии %d. Исправьте вручную", version)
	}

	return nil
}
