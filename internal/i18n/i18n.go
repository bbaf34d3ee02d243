// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package i18n provides the report's user-facing strings in Russian (the
// default) and English. Message keys are the English texts.
package i18n

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/pdiddy/board-report/pkg/types"
)

const durationKey = "%d min %d sec"

var russian = map[string]string{
	durationKey:                  "%d мин %d сек",
	"Report":                     "Отчет",
	"Full report":                "Полный отчет",
	"Board map":                  "Карта платы",
	"Application":                "Приложение",
	"Computer":                   "Компьютер",
	"Date":                       "Дата",
	"Operating system":           "Операционная система",
	"Board":                      "Плата",
	"Comment":                    "Комментарий",
	"Elements":                   "Элементы",
	"Pins":                       "Точки",
	"Tolerance":                  "Допуск",
	"Test duration":              "Длительность тестирования",
	"Mode":                       "Режим",
	"Test":                       "Тестирование",
	"Reference":                  "Эталон",
	"Faulty pins":                "Неисправные точки",
	"Good pins":                  "Исправные точки",
	"Element":                    "Элемент",
	"Pin":                        "Точка",
	"Score":                      "Оценка",
	"Type":                       "Тип",
	"Position":                   "Координаты",
	"Multiplexer":                "Мультиплексор",
	"Probe settings":             "Параметры измерения",
	"Frequency, Hz":              "Частота, Гц",
	"Internal resistance, Ohm":   "Внутреннее сопротивление, Ом",
	"Max voltage, V":             "Амплитуда, В",
	"Voltage, V":                 "Напряжение, В",
	"Current, mA":                "Ток, мА",
	"Test IV-curve":              "Тестовая ВАХ",
	"Reference IV-curve":         "ВАХ эталона",
	"Fault distribution":         "Распределение неисправностей",
	"Number of faults":           "Количество неисправностей",
	"Board image":                "Изображение платы",
	"Board with faulty pins":     "Плата с неисправными точками",
	"Fault histogram":            "Гистограмма неисправностей",
	"Interactive histogram":      "Интерактивная гистограмма",
	"No faulty pins":             "Неисправных точек нет",
	"No pins":                    "Точек нет",
	"Unknown":                    "Неизвестно",
	"General information":        "Общая информация",
	"Reference pin, empty":       "Эталон, нет измерений",
	"Reference pin, lost":        "Эталон, потеря",
	"Reference pin, measured":    "Эталон, измерена",
	"Test pin, empty":            "Тест, нет измерений",
	"Test pin, high score":       "Тест, высокая оценка",
	"Test pin, low score":        "Тест, низкая оценка",
	"Open the board map":         "Открыть карту платы",
	"Open the full report":       "Открыть полный отчет",
	"Open the short report":      "Открыть краткий отчет",
	"Not set":                    "Не задан",
	"Measurement comment":        "Комментарий к измерению",
	"Pins with scores":           "Точки с оценкой",
	"Pin close-up":               "Изображение точки",
	"Report generation finished": "Генерация отчета завершена",
}

var pinTypeKeys = map[types.PinType]string{
	types.PinReferenceEmpty:    "Reference pin, empty",
	types.PinReferenceLoss:     "Reference pin, lost",
	types.PinReferenceNotEmpty: "Reference pin, measured",
	types.PinTestEmpty:         "Test pin, empty",
	types.PinTestHighScore:     "Test pin, high score",
	types.PinTestLowScore:      "Test pin, low score",
}

var cat = newCatalog()

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, text := range russian {
		if err := b.SetString(language.Russian, key, text); err != nil {
			panic(err)
		}
	}
	return b
}

// Localizer renders strings in one language.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns an English localizer when english is set and a Russian one
// otherwise.
func New(english bool) *Localizer {
	tag := language.Russian
	if english {
		tag = language.English
	}
	return &Localizer{tag: tag, printer: message.NewPrinter(tag, message.Catalog(cat))}
}

// T translates key.
func (l *Localizer) T(key string) string {
	return l.printer.Sprintf(key)
}

// Lang returns the BCP 47 base language, used as the HTML lang attribute.
func (l *Localizer) Lang() string {
	base, _ := l.tag.Base()
	return base.String()
}

// PinType returns the human-readable name of a pin type.
func (l *Localizer) PinType(t types.PinType) string {
	if key, ok := pinTypeKeys[t]; ok {
		return l.T(key)
	}
	return string(t)
}

// Duration formats d as whole minutes and seconds, for example
// "61 min 3 sec". It returns "" for zero or negative durations.
func (l *Localizer) Duration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	secs := int(d / time.Second)
	return l.printer.Sprintf(durationKey, secs/60, secs%60)
}
