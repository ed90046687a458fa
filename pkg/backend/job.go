// pkg/backend/job.go
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/arc-language/upkgd/internal/metrics"
	"github.com/arc-language/upkgd/pkg/core"
)

// Signal identifies an event a job reports to the transport layer
type Signal int

const (
	SignalFinished Signal = iota
	SignalPackage
	SignalDetails
	SignalFiles
	SignalRepoDetail
	SignalUpdateDetail
	SignalCategory
	SignalDistroUpgrade
	SignalEulaRequired
	SignalErrorCode
	SignalStatusChanged
	SignalPercentage
	SignalAllowCancel
	SignalTransaction
	signalLast
)

var signalNames = []string{
	"finished", "package", "details", "files", "repo-detail", "update-detail",
	"category", "distro-upgrade", "eula-required", "error-code",
	"status-changed", "percentage", "allow-cancel", "transaction",
}

func (s Signal) String() string {
	if s < 0 || s >= signalLast {
		return "unknown"
	}
	return signalNames[s]
}

// VFunc receives one signal from a job. data is the signal's payload type:
// core.Exit for finished, core.Status for status-changed, int for
// percentage, bool for allow-cancel, core.Transaction for transaction, and
// the matching struct in this file for the rest.
type VFunc func(job *Job, data any)

// Package is emitted for each package a handler reports
type Package struct {
	Info      core.Info
	PackageID string
	Summary   string
}

// Details describes one package
type Details struct {
	PackageID   string
	Summary     string
	Description string
	License     string
	Group       core.Group
	URL         string
	Size        uint64
}

// Files lists the files a package owns
type Files struct {
	PackageID string
	Files     []string
}

// RepoDetail describes one configured repository
type RepoDetail struct {
	RepoID      string
	Description string
	Enabled     bool
}

// UpdateDetail describes a pending update
type UpdateDetail struct {
	PackageID  string
	Updates    []string
	Obsoletes  []string
	VendorURLs []string
	Restart    string
	UpdateText string
	Changelog  string
	Issued     string
	Updated    string
}

// Category is a node of the package category tree
type Category struct {
	ParentID string
	CatID    string
	Name     string
	Summary  string
	Icon     string
}

// DistroUpgrade describes an available distribution release
type DistroUpgrade struct {
	State   string
	Name    string
	Summary string
}

// EulaRequired asks the user to accept a license before proceeding
type EulaRequired struct {
	EulaID           string
	PackageID        string
	VendorName       string
	LicenseAgreement string
}

// ErrorCode is a failure reported by a handler
type ErrorCode struct {
	Code    core.ErrorCode
	Details string
}

func (e ErrorCode) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Details)
}

// Param is one named argument of a dispatched operation
type Param struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Parameters is the ordered argument record stamped on a job
type Parameters []Param

// Get returns the value of the named parameter
func (p Parameters) Get(name string) (any, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return nil, false
}

// JSON serializes the parameters for the history store
func (p Parameters) JSON() string {
	obj := make(map[string]any, len(p))
	for _, param := range p {
		obj[param.Name] = param.Value
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Job is one in-flight transaction against the Backend
type Job struct {
	id     string
	parent context.Context
	logger zerolog.Logger

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	role        core.Role
	flags       core.Bitfield
	params      Parameters
	started     bool
	backend     *Backend
	status      core.Status
	percentage  int
	allowCancel bool
	errCode     *ErrorCode
	exit        core.Exit
	finished    bool
	startTime   time.Time
	vfuncs      [signalLast]VFunc
}

// NewJob creates an unstarted job whose cancellation context derives from
// parent
func NewJob(parent context.Context) *Job {
	if parent == nil {
		parent = context.Background()
	}
	id := uuid.NewString()
	job := &Job{
		id:         id,
		parent:     parent,
		logger:     log.Logger.With().Str("job", id).Logger(),
		percentage: -1,
		startTime:  time.Now(),
	}
	job.ctx, job.cancel = context.WithCancel(parent)
	return job
}

// ID returns the job's unique id
func (j *Job) ID() string {
	return j.id
}

// Logger returns a logger tagged with the job id
func (j *Job) Logger() zerolog.Logger {
	return j.logger
}

// SetLogger replaces the job logger
func (j *Job) SetLogger(l zerolog.Logger) {
	j.logger = l.With().Str("job", j.id).Logger()
}

// Context is cancelled when the job is cancelled
func (j *Job) Context() context.Context {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.ctx
}

// IsCancelled reports whether the job's cancellation token was triggered
func (j *Job) IsCancelled() bool {
	return j.Context().Err() != nil
}

func (j *Job) cancelContext() {
	j.mu.Lock()
	cancel := j.cancel
	j.mu.Unlock()
	cancel()
}

// Role returns the operation the job runs
func (j *Job) Role() core.Role {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.role
}

// SetRole stamps the job's operation. The role can only be set once.
func (j *Job) SetRole(role core.Role) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.role != core.RoleUnknown {
		j.logger.Warn().Str("role", j.role.String()).Str("new", role.String()).Msg("role already set")
		return
	}
	j.role = role
}

// TransactionFlags returns the flags the operation was called with
func (j *Job) TransactionFlags() core.Bitfield {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flags
}

// SetTransactionFlags stamps the operation's flags
func (j *Job) SetTransactionFlags(flags core.Bitfield) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.flags = flags
}

// Parameters returns the recorded arguments
func (j *Job) Parameters() Parameters {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.params
}

// SetParameters records the operation's arguments
func (j *Job) SetParameters(params Parameters) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.params = params
}

// Started reports whether the job was started by the Backend
func (j *Job) Started() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.started
}

func (j *Job) setStarted(started bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.started = started
}

// Backend returns the backend that started the job, or nil
func (j *Job) Backend() *Backend {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.backend
}

func (j *Job) setBackend(b *Backend) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.backend = b
}

// SetVFunc registers the callback for one signal
func (j *Job) SetVFunc(sig Signal, fn VFunc) {
	if sig < 0 || sig >= signalLast {
		j.logger.Warn().Int("signal", int(sig)).Msg("invalid signal")
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.vfuncs[sig] = fn
}

// HasVFunc reports whether a callback is registered for sig
func (j *Job) HasVFunc(sig Signal) bool {
	if sig < 0 || sig >= signalLast {
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.vfuncs[sig] != nil
}

func (j *Job) emit(sig Signal, data any) {
	j.mu.Lock()
	fn := j.vfuncs[sig]
	j.mu.Unlock()
	if fn != nil {
		fn(j, data)
	}
}

// finishedGuard drops events emitted after Finished
func (j *Job) finishedGuard(what string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finished {
		j.logger.Warn().Str("event", what).Msg("job already finished, ignoring")
		return false
	}
	return true
}

// Status returns the job's current phase
func (j *Job) Status() core.Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// SetStatus changes the job's phase and emits status-changed
func (j *Job) SetStatus(status core.Status) {
	j.mu.Lock()
	if j.finished || j.status == status {
		j.mu.Unlock()
		return
	}
	j.status = status
	j.mu.Unlock()
	j.emit(SignalStatusChanged, status)
}

// Percentage returns the last reported progress, -1 if unknown
func (j *Job) Percentage() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.percentage
}

// SetPercentage reports progress between 0 and 100
func (j *Job) SetPercentage(percentage int) {
	if percentage < 0 || percentage > 100 {
		j.logger.Warn().Int("percentage", percentage).Msg("percentage out of range")
		return
	}
	j.mu.Lock()
	if j.finished || j.percentage == percentage {
		j.mu.Unlock()
		return
	}
	j.percentage = percentage
	j.mu.Unlock()
	j.emit(SignalPercentage, percentage)
}

// AllowCancel reports whether the job may currently be cancelled
func (j *Job) AllowCancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.allowCancel
}

// SetAllowCancel tells the transport whether cancelling is safe right now
func (j *Job) SetAllowCancel(allow bool) {
	j.mu.Lock()
	if j.finished || j.allowCancel == allow {
		j.mu.Unlock()
		return
	}
	j.allowCancel = allow
	j.mu.Unlock()
	j.emit(SignalAllowCancel, allow)
}

// Package reports one package
func (j *Job) Package(info core.Info, packageID, summary string) {
	if !j.finishedGuard("package") {
		return
	}
	j.emit(SignalPackage, Package{Info: info, PackageID: packageID, Summary: summary})
}

// Details reports the details of one package
func (j *Job) Details(d Details) {
	if !j.finishedGuard("details") {
		return
	}
	j.emit(SignalDetails, d)
}

// Files reports the files of one package
func (j *Job) Files(packageID string, files []string) {
	if !j.finishedGuard("files") {
		return
	}
	j.emit(SignalFiles, Files{PackageID: packageID, Files: files})
}

// RepoDetail reports one repository
func (j *Job) RepoDetail(repoID, description string, enabled bool) {
	if !j.finishedGuard("repo-detail") {
		return
	}
	j.emit(SignalRepoDetail, RepoDetail{RepoID: repoID, Description: description, Enabled: enabled})
}

// UpdateDetail reports one pending update
func (j *Job) UpdateDetail(d UpdateDetail) {
	if !j.finishedGuard("update-detail") {
		return
	}
	j.emit(SignalUpdateDetail, d)
}

// Category reports one category
func (j *Job) Category(c Category) {
	if !j.finishedGuard("category") {
		return
	}
	j.emit(SignalCategory, c)
}

// DistroUpgrade reports an available distribution upgrade
func (j *Job) DistroUpgrade(state, name, summary string) {
	if !j.finishedGuard("distro-upgrade") {
		return
	}
	j.emit(SignalDistroUpgrade, DistroUpgrade{State: state, Name: name, Summary: summary})
}

// EulaRequired asks for a license to be accepted. The job will exit with
// eula-required unless a later error overrides it.
func (j *Job) EulaRequired(e EulaRequired) {
	if !j.finishedGuard("eula-required") {
		return
	}
	j.mu.Lock()
	if j.exit == core.ExitUnknown {
		j.exit = core.ExitEulaRequired
	}
	j.mu.Unlock()
	j.emit(SignalEulaRequired, e)
}

// Transaction reports one historical transaction record
func (j *Job) Transaction(tx core.Transaction) {
	if !j.finishedGuard("transaction") {
		return
	}
	j.emit(SignalTransaction, tx)
}

// ErrorCode reports a failure. Only the first error is kept; the job exits
// failed, or cancelled for transaction-cancelled.
func (j *Job) ErrorCode(code core.ErrorCode, format string, args ...any) {
	if !j.finishedGuard("error-code") {
		return
	}
	ec := ErrorCode{Code: code, Details: fmt.Sprintf(format, args...)}

	j.mu.Lock()
	if j.errCode != nil {
		first := j.errCode
		j.mu.Unlock()
		j.logger.Warn().Str("first", first.Error()).Str("ignored", ec.Error()).Msg("error already set")
		return
	}
	j.errCode = &ec
	if code == core.ErrorTransactionCancelled {
		j.exit = core.ExitCancelled
	} else {
		j.exit = core.ExitFailed
	}
	j.mu.Unlock()

	j.emit(SignalErrorCode, ec)
}

// Error returns the first reported failure, or nil
func (j *Job) Error() *ErrorCode {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.errCode
}

// Exit returns the terminal outcome; unknown until finished
func (j *Job) Exit() core.Exit {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.exit
}

// IsFinished reports whether Finished was emitted
func (j *Job) IsFinished() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finished
}

// Finished ends the transaction. It emits the finished signal exactly once
// and records the transaction in the backend's history.
func (j *Job) Finished() {
	j.mu.Lock()
	if j.finished {
		j.mu.Unlock()
		j.logger.Warn().Msg("already finished")
		return
	}
	j.finished = true
	if j.exit == core.ExitUnknown {
		if j.ctx.Err() != nil {
			j.exit = core.ExitCancelled
		} else {
			j.exit = core.ExitSuccess
		}
	}
	j.status = core.StatusFinished
	tx := core.Transaction{
		ID:               j.id,
		Role:             j.role,
		TransactionFlags: j.flags,
		Parameters:       j.params.JSON(),
		Exit:             j.exit,
		Started:          j.startTime,
		Duration:         time.Since(j.startTime),
	}
	if j.errCode != nil {
		tx.Error = j.errCode.Error()
	}
	b := j.backend
	j.mu.Unlock()

	if b != nil {
		tx.Backend = b.Name()
		b.recordTransaction(j.parent, tx)
	}
	metrics.JobsFinished.WithLabelValues(tx.Role.String(), tx.Exit.String()).Inc()
	j.logger.Debug().Str("role", tx.Role.String()).Str("exit", tx.Exit.String()).Dur("duration", tx.Duration).Msg("job finished")

	j.emit(SignalFinished, tx.Exit)
}

func (j *Job) finishIfPending() {
	if !j.IsFinished() {
		j.Finished()
	}
}

// reset clears per-transaction state so the job can carry a new request.
// Registered callbacks are kept.
func (j *Job) reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancel()
	j.ctx, j.cancel = context.WithCancel(j.parent)
	j.role = core.RoleUnknown
	j.flags = 0
	j.params = nil
	j.backend = nil
	j.status = core.StatusUnknown
	j.percentage = -1
	j.allowCancel = false
	j.errCode = nil
	j.exit = core.ExitUnknown
	j.finished = false
	j.startTime = time.Now()
}
