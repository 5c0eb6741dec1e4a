package plan

import (
	"os"
	"reflect"

	"happyinvest/internal/models"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type catalogFile struct {
	Plans []models.Plan `mapstructure:"plans"`
}

// Load reads the catalog from path (yaml, json or toml, by extension). A
// missing file falls back to BuiltinPlans.
func Load(path string) (Catalog, error) {
	if path == "" {
		return NewCatalog(BuiltinPlans())
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.WithField("path", path).Info("plan file not found, using built-in catalog")
		return NewCatalog(BuiltinPlans())
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read plan file %s", path)
	}

	var file catalogFile
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		decimalHook,
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&file, hook); err != nil {
		return nil, errors.Wrapf(err, "decode plan file %s", path)
	}

	c, err := NewCatalog(file.Plans)
	if err != nil {
		return nil, errors.Wrapf(err, "plan file %s", path)
	}
	log.WithFields(log.Fields{
		"path":  path,
		"plans": len(file.Plans),
	}).Info("plan catalog loaded")
	return c, nil
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

func decimalHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return decimal.NewFromString(v)
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	}
	return data, nil
}
