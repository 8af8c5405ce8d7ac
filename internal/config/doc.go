// Package config загружает конфигурацию воркера и CLI.
//
// Источники по возрастанию приоритета:
//
//  1. встроенные значения по умолчанию (defaults.yaml);
//  2. YAML-файл из PERMITFLOW_CONFIG (или явный путь);
//  3. переменные окружения с префиксом PERMITFLOW_ (точка → "_"):
//     PERMITFLOW_ENGINE_URL, PERMITFLOW_DATABASE_URL, PERMITFLOW_MUNICIPALITYID.
//
// Файл проверяется строго: неизвестный ключ — ошибка, а не тихий игнор.
package config
