package config

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
)

// decimalDecodeHook lets TOML numeric and string fields decode straight
// into decimal.Decimal, so thresholds like min_profit_threshold = 0.5 or
// max_trade_amount = "1000.00" both work without a custom TOML type.
func decimalDecodeHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(decimal.Decimal{}) {
		return data, nil
	}

	switch from.Kind() {
	case reflect.String:
		s := data.(string)
		if s == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(s)
	case reflect.Float32, reflect.Float64:
		return decimal.NewFromFloat(reflect.ValueOf(data).Float()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(reflect.ValueOf(data).Int()), nil
	default:
		return nil, fmt.Errorf("config: cannot decode %s into decimal.Decimal", from.Kind())
	}
}

var _ mapstructure.DecodeHookFuncType = decimalDecodeHook
