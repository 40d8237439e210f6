package pages

import "github.com/bigkaa/agroadmin/internal/domain/model"

// DependenciesID — id блока состояний зависимостей (обновляется через SSE).
const DependenciesID = "dependencies"

// countKey возвращает суффикс ключа перевода карточки сущности.
func countKey(entity string) string {
	switch entity {
	case model.EntityWarehouses:
		return "warehouses"
	case model.EntitySeasons:
		return "seasons"
	default:
		return entity
	}
}

func depClass(ok bool) string {
	if ok {
		return "dep-up"
	}
	return "dep-down"
}

func depStatusKey(ok bool) string {
	if ok {
		return "status.up"
	}
	return "status.down"
}
