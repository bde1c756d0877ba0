package dashboard

import (
	"net/http"
	"strings"

	"github.com/fagongzi/util/format"
	"github.com/labstack/echo"
	"shards.io/shards/pkg/meta"
	"shards.io/shards/pkg/util"
)

const (
	succeed = 0
	failed  = 1
)

const (
	defaultLimit = 50
)

type shardState struct {
	Key                string         `json:"key"`
	ShardIDs           []meta.ShardID `json:"shardIds"`
	VirtualShardIDs    []meta.ShardID `json:"virtualShardIds,omitempty"`
	SessionEstablished bool           `json:"sessionEstablished"`
}

type queryRequest struct {
	Stmt   string                 `json:"stmt"`
	Params map[string]interface{} `json:"params,omitempty"`
}

func (s *Dashboard) shards() func(ctx echo.Context) error {
	return func(ctx echo.Context) error {
		var states []shardState
		for _, sd := range s.coord.Shards() {
			state := shardState{
				Key:                sd.Key(),
				ShardIDs:           sd.ShardIDs(),
				SessionEstablished: sd.Session() != nil,
			}
			for _, sid := range sd.ShardIDs() {
				state.VirtualShardIDs = append(state.VirtualShardIDs,
					s.coord.VirtualShardIDs(sid)...)
			}

			states = append(states, state)
		}

		return ctx.JSON(http.StatusOK, &meta.JSONResult{
			Value: states,
		})
	}
}

func (s *Dashboard) stats() func(ctx echo.Context) error {
	return func(ctx echo.Context) error {
		result := meta.JSONResult{}

		stats, err := util.MemStats()
		if err != nil {
			result.Code = failed
			result.Value = err.Error()
			return ctx.JSON(http.StatusOK, result)
		}

		result.Value = map[string]interface{}{
			"shards": len(s.coord.Shards()),
			"memory": stats,
		}
		return ctx.JSON(http.StatusOK, result)
	}
}

func (s *Dashboard) executeQuery() func(ctx echo.Context) error {
	return func(ctx echo.Context) error {
		value := &queryRequest{}
		err := util.ReadJSONFromBody(ctx.Request().Body, value)
		if err != nil || value.Stmt == "" {
			return ctx.NoContent(http.StatusBadRequest)
		}

		limit := uint64(defaultLimit)
		if param := ctx.QueryParam("limit"); param != "" {
			limit, err = format.ParseStrUInt64(param)
			if err != nil {
				return ctx.NoContent(http.StatusBadRequest)
			}
		}

		query, err := s.coord.NewQuery(value.Stmt)
		if err != nil {
			return ctx.JSON(http.StatusOK, &meta.JSONResult{
				Code:  failed,
				Value: err.Error(),
			})
		}

		for name, param := range value.Params {
			if err := query.SetParameter(name, param); err != nil {
				return ctx.JSON(http.StatusOK, &meta.JSONResult{
					Code:  failed,
					Value: err.Error(),
				})
			}
		}

		result := meta.JSONResult{}
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(value.Stmt)), "delete") {
			n, err := query.ExecuteUpdate()
			result.Value = n
			if err != nil {
				result.Code = failed
				result.Value = err.Error()
			}

			return ctx.JSON(http.StatusOK, result)
		}

		rows, err := query.List()
		if err != nil {
			result.Code = failed
			result.Value = err.Error()
			return ctx.JSON(http.StatusOK, result)
		}

		if uint64(len(rows)) > limit {
			rows = rows[:limit]
		}
		result.Value = rows
		return ctx.JSON(http.StatusOK, result)
	}
}
