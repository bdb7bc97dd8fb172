package httpclient

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// DebugOutput receives a dump of every http message, *debug.Debugger
// implements it.
type DebugOutput interface {
	Write(id string, contents string)
}

type debugCtxKeyType int

var debugCtxKey debugCtxKeyType

type instrumentDebug struct {
	output    DebugOutput
	idcounter *uint64
}

// InstrumentDebug writes the request and response of every call made by
// client to output.
func InstrumentDebug(client *resty.Client, output DebugOutput) {
	var idcounter uint64
	i := instrumentDebug{output: output, idcounter: &idcounter}
	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
}

func (i instrumentDebug) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	messageId := strconv.FormatUint(atomic.AddUint64(i.idcounter, 1), 10)
	req.SetContext(context.WithValue(req.Context(), debugCtxKey, messageId))
	return nil
}

func (i instrumentDebug) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	messageId, ok := res.Request.Context().Value(debugCtxKey).(string)
	if !ok {
		return nil
	}
	i.output.Write(messageId, FormatMessage(res))
	return nil
}
