package mazeapi

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/beka-birhanu/mazegen/api/identity"
	"github.com/beka-birhanu/mazegen/config"
	"github.com/beka-birhanu/mazegen/service"
	"github.com/beka-birhanu/mazegen/service/i"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultTokenTTL = 24 * time.Hour

var (
	ErrMissingSessions  = errors.New("maze controller requires a session manager")
	ErrMissingTokenizer = errors.New("maze controller requires a tokenizer")
)

// Config holds the dependencies of a MazeController.
type Config struct {
	Sessions    i.MazeSessionManager
	Tokenizer   i.Tokenizer
	TokenTTL    time.Duration // lifetime of write tokens
	DefaultRows int
	DefaultCols int
	Logger      *log.Logger
}

// MazeController serves maze sessions.
type MazeController struct {
	sessions    i.MazeSessionManager
	tokenizer   i.Tokenizer
	tokenTTL    time.Duration
	defaultRows int
	defaultCols int
	logger      *log.Logger
}

// NewMazeController initializes a MazeController.
func NewMazeController(c Config) (*MazeController, error) {
	if c.Sessions == nil {
		return nil, ErrMissingSessions
	}
	if c.Tokenizer == nil {
		return nil, ErrMissingTokenizer
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = defaultTokenTTL
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard, "", 0)
	}

	return &MazeController{
		sessions:    c.Sessions,
		tokenizer:   c.Tokenizer,
		tokenTTL:    c.TokenTTL,
		defaultRows: c.DefaultRows,
		defaultCols: c.DefaultCols,
		logger:      c.Logger,
	}, nil
}

// RegisterPublic registers public routes.
func (mc *MazeController) RegisterPublic(route *gin.RouterGroup) {
	mazes := route.Group("/mazes")
	{
		mazes.POST("", mc.create)
		mazes.GET("/:ID", mc.snapshot)
		mazes.GET("/:ID/ascii", mc.ascii)
		mazes.GET("/:ID/stream", mc.stream)
	}
}

// RegisterProtected registers routes that require the maze's write token.
func (mc *MazeController) RegisterProtected(route *gin.RouterGroup) {
	mazes := route.Group("/mazes")
	{
		mazes.POST("/:ID/step", mc.step)
		mazes.POST("/:ID/complete", mc.complete)
		mazes.POST("/:ID/reset", mc.reset)
		mazes.POST("/:ID/animate", mc.startAnimation)
		mazes.DELETE("/:ID/animate", mc.stopAnimation)
		mazes.DELETE("/:ID", mc.delete)
	}
}

// create builds a new maze session and issues its write token.
func (mc *MazeController) create(ctx *gin.Context) {
	var request CreateMazeRequest
	if err := ctx.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if request.Rows == 0 {
		request.Rows = mc.defaultRows
	}
	if request.Cols == 0 {
		request.Cols = mc.defaultCols
	}

	snapshot, err := mc.sessions.Create(request.Rows, request.Cols, request.Seed)
	if err != nil {
		writeError(ctx, err)
		return
	}

	token, err := mc.tokenizer.Generate(map[string]interface{}{
		identity.ClaimMazeID: snapshot.ID.String(),
	}, mc.tokenTTL)
	if err != nil {
		mc.logger.Printf("%s[ERROR]%s signing write token for maze %s: %s", config.LogErrorColor, config.LogColorReset, snapshot.ID, err)
		_ = mc.sessions.Delete(snapshot.ID)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "error while issuing write token"})
		return
	}

	ctx.JSON(http.StatusCreated, &CreateMazeResponse{Maze: snapshot, Token: token})
}

// snapshot returns the cells and generator state of a maze.
func (mc *MazeController) snapshot(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	snapshot, err := mc.sessions.Snapshot(id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, snapshot)
}

// ascii returns the maze drawn with +, - and | characters.
func (mc *MazeController) ascii(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	text, err := mc.sessions.Render(id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.String(http.StatusOK, text)
}

// step advances generation by one step.
func (mc *MazeController) step(ctx *gin.Context) {
	id, ok := mc.ownedID(ctx)
	if !ok {
		return
	}

	event, err := mc.sessions.Step(id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, event)
}

// complete runs generation to the end.
func (mc *MazeController) complete(ctx *gin.Context) {
	id, ok := mc.ownedID(ctx)
	if !ok {
		return
	}

	snapshot, err := mc.sessions.Complete(id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, snapshot)
}

// reset replaces the maze with a freshly built grid.
func (mc *MazeController) reset(ctx *gin.Context) {
	id, ok := mc.ownedID(ctx)
	if !ok {
		return
	}

	var request ResetMazeRequest
	if err := ctx.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshot, err := mc.sessions.Reset(id, request.Rows, request.Cols)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, snapshot)
}

// startAnimation steps the maze on a server-side clock.
func (mc *MazeController) startAnimation(ctx *gin.Context) {
	id, ok := mc.ownedID(ctx)
	if !ok {
		return
	}

	var request AnimateRequest
	if err := ctx.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	interval := time.Duration(request.IntervalMS) * time.Millisecond
	if err := mc.sessions.StartAnimation(id, interval); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusAccepted)
}

// stopAnimation halts the server-side clock.
func (mc *MazeController) stopAnimation(ctx *gin.Context) {
	id, ok := mc.ownedID(ctx)
	if !ok {
		return
	}

	if err := mc.sessions.StopAnimation(id); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// delete drops the maze session.
func (mc *MazeController) delete(ctx *gin.Context) {
	id, ok := mc.ownedID(ctx)
	if !ok {
		return
	}

	if err := mc.sessions.Delete(id); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// ownedID parses the maze ID and checks that the request's write token was
// issued for that maze.
func (mc *MazeController) ownedID(ctx *gin.Context) (uuid.UUID, bool) {
	id, ok := parseID(ctx)
	if !ok {
		return uuid.Nil, false
	}

	claimed, ok := identity.MazeID(ctx)
	if !ok || claimed != id.String() {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "write token does not grant access to this maze"})
		return uuid.Nil, false
	}
	return id, true
}

func parseID(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Params.ByName("ID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid maze id"})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps session errors onto HTTP statuses.
func writeError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidDimensions), errors.Is(err, service.ErrInvalidInterval):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrAnimationRunning),
		errors.Is(err, service.ErrAnimationNotRunning),
		errors.Is(err, service.ErrGenerationComplete):
		status = http.StatusConflict
	case errors.Is(err, service.ErrTooManySessions):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		ctx.JSON(status, gin.H{"error": fmt.Sprintf("unexpected error: %s", err)})
		return
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}
