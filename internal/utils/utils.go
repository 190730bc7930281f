package utils

import (
	"reflect"
	"strings"
	"time"
)

// isoFormat is RFC 3339 with a fixed-width fractional second so that
// timestamp columns sort correctly as text.
const isoFormat = "2006-01-02T15:04:05.000000000Z07:00"

func NowISO() string {
	return time.Now().
		UTC().
		Format(isoFormat)
}

func Sanitize(o any) {
	v := reflect.ValueOf(o)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		panic("sanitize: expected pointer to struct")
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		panic("sanitize: expected struct")
	}

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		switch field.Kind() {
		case reflect.String:
			field.SetString(sanitizeString(field.String()))

		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.String {
				field.Elem().SetString(sanitizeString(field.Elem().String()))
			}
		}
	}
}

func sanitizeString(s string) string {
	return strings.TrimSpace(s)
}
