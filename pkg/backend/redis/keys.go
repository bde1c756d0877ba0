package redis

import (
	"fmt"
)

func entityKey(prefix, kind string) string {
	return fmt.Sprintf("__%s_%s_entities__", prefix, kind)
}
