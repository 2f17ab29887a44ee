package handlers

import (
	"encoding/json"
	"strconv"

	xhttp "github.com/dakar-humidity/alert-gateway/pkg/http"
)

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	xhttp.WriteJSON(ctx, status, v)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	xhttp.WriteDetail(ctx, status, msg)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	v, _ := ctx.UserValue(name).(string)
	return strconv.ParseInt(v, 10, 64)
}
