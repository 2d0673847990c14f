package server

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tiglabs/cellgraph/config"
	"github.com/tiglabs/cellgraph/graph"
	"github.com/tiglabs/cellgraph/metrics"
	"github.com/tiglabs/cellgraph/proto"
	"github.com/tiglabs/cellgraph/schema"
	"github.com/tiglabs/cellgraph/store"
	"github.com/tiglabs/cellgraph/util"
	"github.com/tiglabs/cellgraph/util/json"
	"github.com/tiglabs/cellgraph/util/log"
	"github.com/tiglabs/cellgraph/util/netutil"
	"github.com/tiglabs/cellgraph/util/routine"
	"github.com/tiglabs/cellgraph/util/timeutil"
)

const (
	// definition for http url parameter name
	SCHEMA_ID = "schema_id"
	KEY       = "key"
	VERTEX_ID = "id"
	DIRECTION = "direction"
)

type ApiServer struct {
	config     *config.Config
	httpServer *netutil.Server
	graph      *graph.Graph
	wg         sync.WaitGroup
}

func NewApiServer(cfg *config.Config, g *graph.Graph) *ApiServer {
	serverCfg := &netutil.ServerConfig{
		Name:         "graphd-api-server",
		Addr:         util.BuildAddr("0.0.0.0", int(cfg.ServerCfg.HttpPort)),
		Version:      cfg.ModuleCfg.Version,
		ConnLimit:    int(cfg.ServerCfg.ConnectionLimit),
		ReadTimeout:  cfg.ServerCfg.ReadTimeout.Duration,
		WriteTimeout: cfg.ServerCfg.WriteTimeout.Duration,
	}

	apiServer := &ApiServer{
		config:     cfg,
		httpServer: netutil.NewServer(serverCfg),
		graph:      g,
	}
	apiServer.initAdminHandler()
	apiServer.initGraphHandler()

	return apiServer
}

func (s *ApiServer) Start() error {
	s.wg.Add(1)
	routine.GoWork(func() {
		defer s.wg.Done()

		if err := s.httpServer.Run(); err != nil {
			log.Error("api server run error[%v]", err)
		}
	})

	log.Info("ApiServer has started")
	return nil
}

func (s *ApiServer) Close() error {
	if s.httpServer != nil {
		s.httpServer.Close()
		s.httpServer = nil
	}

	s.wg.Wait()

	log.Info("ApiServer has closed")
	return nil
}

func (s *ApiServer) initAdminHandler() {
	s.handle(netutil.POST, "/manage/schema/vertex/create", s.handleVertexSchemaCreate)
	s.handle(netutil.POST, "/manage/schema/edge/create", s.handleEdgeSchemaCreate)
	s.handle(netutil.GET, "/manage/schema/detail", s.handleSchemaDetail)

	s.httpServer.HandleRaw(netutil.GET, "/metrics", promhttp.Handler())
}

func (s *ApiServer) initGraphHandler() {
	s.handle(netutil.POST, "/graph/vertex/create", s.handleVertexCreate)
	s.handle(netutil.GET, "/graph/vertex/get", s.handleVertexGet)
	s.handle(netutil.POST, "/graph/vertex/update", s.handleVertexUpdate)
	s.handle(netutil.DELETE, "/graph/vertex/delete", s.handleVertexDelete)

	s.handle(netutil.POST, "/graph/edge/link", s.handleEdgeLink)
	s.handle(netutil.DELETE, "/graph/edge/unlink", s.handleEdgeUnlink)
	s.handle(netutil.GET, "/graph/neighbours", s.handleNeighbours)
}

// handle registers the handler with request metrics recorded per path.
func (s *ApiServer) handle(method netutil.HttpMethod, uri string, h netutil.Handle) {
	s.httpServer.Handle(method, uri, func(w http.ResponseWriter, r *http.Request, params netutil.UriParams) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h(sw, r, params)
		metrics.HttpRequestsTotal.WithLabelValues(r.Method, uri, strconv.Itoa(sw.status)).Inc()
		metrics.HttpRequestDuration.WithLabelValues(r.Method, uri).Observe(timeutil.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// schema management

type schemaCreateRequest struct {
	ID     proto.SchemaID `json:"id"`
	Name   string         `json:"name"`
	Fields []schema.Field `json:"fields,omitempty"`

	// edge schemas only
	Undirected bool `json:"undirected,omitempty"`
	HasBody    bool `json:"has_body,omitempty"`
}

func (s *ApiServer) handleVertexSchemaCreate(w http.ResponseWriter, r *http.Request, _ netutil.UriParams) {
	req := new(schemaCreateRequest)
	if err := decodeRequest(w, r, req); err != nil {
		return
	}

	err := s.graph.DefineVertexSchema(&schema.GraphSchema{
		ID:     req.ID,
		Name:   req.Name,
		Fields: req.Fields,
	})
	if err != nil {
		sendReply(w, newHttpErrReply(err))
		return
	}
	sendReply(w, newHttpSucReply(""))
}

func (s *ApiServer) handleEdgeSchemaCreate(w http.ResponseWriter, r *http.Request, _ netutil.UriParams) {
	req := new(schemaCreateRequest)
	if err := decodeRequest(w, r, req); err != nil {
		return
	}

	edgeType := schema.EdgeDirected
	if req.Undirected {
		edgeType = schema.EdgeUndirected
	}
	err := s.graph.DefineEdgeSchema(&schema.GraphSchema{
		ID:     req.ID,
		Name:   req.Name,
		Fields: req.Fields,
	}, schema.EdgeAttributes{Type: edgeType, HasBody: req.HasBody})
	if err != nil {
		sendReply(w, newHttpErrReply(err))
		return
	}
	sendReply(w, newHttpSucReply(""))
}

func (s *ApiServer) handleSchemaDetail(w http.ResponseWriter, r *http.Request, _ netutil.UriParams) {
	schemaID, err := checkMissingAndUint32Param(w, r, SCHEMA_ID)
	if err != nil {
		return
	}

	desc, err := s.graph.Schema(schemaID)
	if err != nil {
		sendReply(w, newHttpErrReply(err))
		return
	}
	sendReply(w, newHttpSucReply(desc))
}

// vertex operations

type vertexCreateRequest struct {
	SchemaID proto.SchemaID         `json:"schema_id"`
	Key      string                 `json:"key"`
	Data     map[string]interface{} `json:"data"`
}

type vertexReply struct {
	Id       string                 `json:"id"`
	SchemaID proto.SchemaID         `json:"schema_id"`
	Data     map[string]interface{} `json:"data"`
}

func newVertexReply(v *graph.Vertex) *vertexReply {
	return &vertexReply{
		Id:       v.Id.String(),
		SchemaID: v.SchemaID,
		Data:     v.Data,
	}
}

func (s *ApiServer) handleVertexCreate(w http.ResponseWriter, r *http.Request, _ netutil.UriParams) {
	req := new(vertexCreateRequest)
	if err := decodeRequest(w, r, req); err != nil {
		return
	}

	v, err := s.graph.NewVertex(req.SchemaID, []byte(req.Key), req.Data)
	if err != nil {
		sendReply(w, newHttpErrReply(err))
		return
	}
	sendReply(w, newHttpSucReply(newVertexReply(v)))
}

// resolveVertexId accepts either an explicit cell id or a (schema, key)
// pair as the vertex address.
func (s *ApiServer) resolveVertexId(w http.ResponseWriter, r *http.Request) (store.Id, error) {
	if idStr := r.FormValue(VERTEX_ID); idStr != "" {
		id, err := decodeId(idStr)
		if err != nil {
			sendParamError(w, fmt.Sprintf("invalid[%s]", VERTEX_ID))
			return store.UnitId, ErrParamError
		}
		return id, nil
	}

	schemaID, err := checkMissingAndUint32Param(w, r, SCHEMA_ID)
	if err != nil {
		return store.UnitId, err
	}
	key, err := checkMissingParam(w, r, KEY)
	if err != nil {
		return store.UnitId, err
	}
	return store.EncodeKey(schemaID, []byte(key)), nil
}

func (s *ApiServer) handleVertexGet(w http.ResponseWriter, r *http.Request, _ netutil.UriParams) {
	id, err := s.resolveVertexId(w, r)
	if err != nil {
		return
	}

	v, err := s.graph.ReadVertex(id)
	if err != nil {
		sendReply(w, newHttpErrReply(err))
		return
	}
	sendReply(w, newHttpSucReply(newVertexReply(v)))
}

type vertexUpdateRequest struct {
	SchemaID proto.SchemaID         `json:"schema_id,omitempty"`
	Key      string                 `json:"key,omitempty"`
	Id       string                 `json:"id,omitempty"`
	Data     map[string]interface{} `json:"data"`
}

func (s *ApiServer) handleVertexUpdate(w http.ResponseWriter, r *http.Request, _ netutil.UriParams) {
	req := new(vertexUpdateRequest)
	if err := decodeRequest(w, r, req); err != nil {
		return
	}

	var id store.Id
	if req.Id != "" {
		var err error
		if id, err = decodeId(req.Id); err != nil {
			sendParamError(w, fmt.Sprintf("invalid[%s]", VERTEX_ID))
			return
		}
	} else {
		id = store.EncodeKey(req.SchemaID, []byte(req.Key))
	}

	// the replacement passes the same schema validation as a create
	err := s.graph.Transaction(func(t *graph.GraphTransaction) error {
		v, err := t.ReadVertex(id)
		if err != nil {
			return err
		}
		gs, err := s.graph.Schema(v.SchemaID)
		if err != nil {
			return err
		}
		if req.Data == nil {
			return graph.ErrDataNotMap
		}
		if err = gs.ConformData(req.Data); err != nil {
			return err
		}
		return t.UpdateVertex(id, func(v *graph.Vertex) *graph.Vertex {
			v.Data = req.Data
			return v
		})
	})
	if err != nil {
		sendReply(w, newHttpErrReply(err))
		return
	}
	sendReply(w, newHttpSucReply(""))
}

func (s *ApiServer) handleVertexDelete(w http.ResponseWriter, r *http.Request, _ netutil.UriParams) {
	id, err := s.resolveVertexId(w, r)
	if err != nil {
		return
	}

	if err = s.graph.RemoveVertex(id); err != nil {
		sendReply(w, newHttpErrReply(err))
		return
	}
	sendReply(w, newHttpSucReply(""))
}

// edge operations

type linkRequest struct {
	SchemaID proto.SchemaID         `json:"schema_id"`
	From     string                 `json:"from"`
	To       string                 `json:"to"`
	Body     map[string]interface{} `json:"body,omitempty"`
}

type edgeReply struct {
	SchemaID proto.SchemaID         `json:"schema_id"`
	Type     schema.EdgeType        `json:"type"`
	From     string                 `json:"from"`
	To       string                 `json:"to"`
	Body     map[string]interface{} `json:"body,omitempty"`
	CellId   string                 `json:"cell_id,omitempty"`
}

func newEdgeReply(e *graph.Edge) *edgeReply {
	reply := &edgeReply{
		SchemaID: e.SchemaID,
		Type:     e.Type,
		From:     e.From.String(),
		To:       e.To.String(),
		Body:     e.Body,
	}
	if !e.CellId.IsUnit() {
		reply.CellId = e.CellId.String()
	}
	return reply
}

func (s *ApiServer) decodeLinkRequest(w http.ResponseWriter, r *http.Request) (*linkRequest, store.Id, store.Id, error) {
	req := new(linkRequest)
	if err := decodeRequest(w, r, req); err != nil {
		return nil, store.UnitId, store.UnitId, err
	}

	from, err := decodeId(req.From)
	if err != nil {
		sendParamError(w, "invalid[from]")
		return nil, store.UnitId, store.UnitId, ErrParamError
	}
	to, err := decodeId(req.To)
	if err != nil {
		sendParamError(w, "invalid[to]")
		return nil, store.UnitId, store.UnitId, ErrParamError
	}
	return req, from, to, nil
}

func (s *ApiServer) handleEdgeLink(w http.ResponseWriter, r *http.Request, _ netutil.UriParams) {
	req, from, to, err := s.decodeLinkRequest(w, r)
	if err != nil {
		return
	}

	edge, err := s.graph.Link(req.SchemaID, from, to, req.Body)
	if err != nil {
		sendReply(w, newHttpErrReply(err))
		return
	}
	sendReply(w, newHttpSucReply(newEdgeReply(edge)))
}

func (s *ApiServer) handleEdgeUnlink(w http.ResponseWriter, r *http.Request, _ netutil.UriParams) {
	req, from, to, err := s.decodeLinkRequest(w, r)
	if err != nil {
		return
	}

	if err = s.graph.Unlink(req.SchemaID, from, to); err != nil {
		sendReply(w, newHttpErrReply(err))
		return
	}
	sendReply(w, newHttpSucReply(""))
}

func (s *ApiServer) handleNeighbours(w http.ResponseWriter, r *http.Request, _ netutil.UriParams) {
	id, err := s.resolveVertexId(w, r)
	if err != nil {
		return
	}
	schemaID, err := checkMissingAndUint32Param(w, r, SCHEMA_ID)
	if err != nil {
		return
	}

	dir, err := parseDirection(r.FormValue(DIRECTION))
	if err != nil {
		sendParamError(w, fmt.Sprintf("invalid[%s]", DIRECTION))
		return
	}

	edges, err := s.graph.Neighbourhoods(id, schemaID, dir)
	if err != nil {
		sendReply(w, newHttpErrReply(err))
		return
	}

	replies := make([]*edgeReply, 0, len(edges))
	for _, e := range edges {
		replies = append(replies, newEdgeReply(e))
	}
	sendReply(w, newHttpSucReply(replies))
}

func parseDirection(value string) (graph.Direction, error) {
	switch value {
	case "in", "inbound":
		return graph.Inbound, nil
	case "out", "outbound":
		return graph.Outbound, nil
	case "un", "undirected":
		return graph.Undirected, nil
	default:
		return 0, ErrParamError
	}
}

func decodeId(value string) (store.Id, error) {
	var id store.Id
	if err := id.UnmarshalJSON([]byte(`"` + value + `"`)); err != nil {
		return store.UnitId, err
	}
	return id, nil
}

// reply plumbing

type HttpReply struct {
	Code int32       `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data"`
}

func newHttpSucReply(data interface{}) *HttpReply {
	return &HttpReply{
		Code: ERRCODE_SUCCESS,
		Msg:  ErrSuc.Error(),
		Data: data,
	}
}

func newHttpErrReply(err error) *HttpReply {
	if err == nil {
		return newHttpSucReply("")
	}

	if code, ok := err2Code(err); ok {
		return &HttpReply{
			Code: code,
			Msg:  err.Error(),
		}
	}
	return &HttpReply{
		Code: ERRCODE_INTERNAL_ERROR,
		Msg:  ErrInternalError.Error(),
	}
}

func sendReply(w http.ResponseWriter, httpReply *HttpReply) {
	reply, err := json.Marshal(httpReply)
	if err != nil {
		log.Error("fail to marshal http reply[%v]. err:[%v]", httpReply, err)
		sendReply(w, newHttpErrReply(ErrInternalError))
		return
	}
	w.Header().Set("content-type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(reply)))
	if _, err := w.Write(reply); err != nil {
		log.Error("fail to write http reply[%s] len[%d]. err:[%v]", string(reply), len(reply), err)
	}
}

func sendParamError(w http.ResponseWriter, detail string) {
	reply := newHttpErrReply(ErrParamError)
	reply.Msg = fmt.Sprintf("%s. %s", reply.Msg, detail)
	sendReply(w, reply)
}

func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		sendParamError(w, fmt.Sprintf("bad request body: %v", err))
		return ErrParamError
	}
	return nil
}

func checkMissingParam(w http.ResponseWriter, r *http.Request, paramName string) (string, error) {
	paramVal := r.FormValue(paramName)
	if paramVal == "" {
		sendParamError(w, fmt.Sprintf("missing[%s]", paramName))
		return "", ErrParamError
	}
	return paramVal, nil
}

func checkMissingAndUint32Param(w http.ResponseWriter, r *http.Request, paramName string) (uint32, error) {
	paramValStr, err := checkMissingParam(w, r, paramName)
	if err != nil {
		return 0, err
	}

	paramValInt, err := strconv.ParseUint(paramValStr, 10, 32)
	if err != nil {
		sendParamError(w, fmt.Sprintf("unmatched type[%s]", paramName))
		return 0, ErrParamError
	}
	return uint32(paramValInt), nil
}
