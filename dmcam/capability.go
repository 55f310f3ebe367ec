package dmcam

import "fmt"

// Canonical capability names. A capability is an optional remote operation
// whose concrete script-function name varies across GMS versions; the
// negotiator resolves each canonical name to the concrete name the connected
// host actually exposes.
const (
	CapGetEnergyFilter               = "GetEnergyFilter"
	CapSetEnergyFilter               = "SetEnergyFilter"
	CapGetEnergyFilterWidth          = "GetEnergyFilterWidth"
	CapSetEnergyFilterWidth          = "SetEnergyFilterWidth"
	CapGetEnergyFilterOffset         = "GetEnergyFilterOffset"
	CapSetEnergyFilterOffset         = "SetEnergyFilterOffset"
	CapAlignEnergyFilterZeroLossPeak = "AlignEnergyFilterZeroLossPeak"
)

// waitForFilterClause is appended to filter-mutating scripts when the
// resolved SetEnergyFilter variant does not settle before returning.
const waitForFilterClause = "IFWaitForFilter();"

// ProbeEntry is one row of the capability probe table: if the concrete
// script function exists on the host, it becomes the implementation of the
// canonical capability, unless an earlier row already claimed it.
type ProbeEntry struct {
	Concrete  string
	Canonical string

	// RequiresPostWait marks variants that return before the filter
	// hardware settles; dependent scripts must append an explicit wait.
	RequiresPostWait bool
}

// Capability is a resolved capability: the concrete remote function name
// serving a canonical operation on this connection.
type Capability struct {
	Concrete         string
	RequiresPostWait bool
}

// DefaultProbeList returns the built-in probe table covering the
// energy-filter vocabularies of the known GMS generations (AF*, IFC*, IF*,
// and the GT_CenterZLP alias). Row order matters: for each canonical
// capability the first concrete name found to exist wins.
func DefaultProbeList() []ProbeEntry {
	return []ProbeEntry{
		{Concrete: "AFGetSlitState", Canonical: CapGetEnergyFilter},
		{Concrete: "AFSetSlitState", Canonical: CapSetEnergyFilter},
		{Concrete: "AFGetSlitWidth", Canonical: CapGetEnergyFilterWidth},
		{Concrete: "AFSetSlitWidth", Canonical: CapSetEnergyFilterWidth},
		{Concrete: "AFDoAlignZeroLoss", Canonical: CapAlignEnergyFilterZeroLossPeak},
		{Concrete: "IFCGetSlitState", Canonical: CapGetEnergyFilter},
		{Concrete: "IFCSetSlitState", Canonical: CapSetEnergyFilter},
		{Concrete: "IFCGetSlitWidth", Canonical: CapGetEnergyFilterWidth},
		{Concrete: "IFCSetSlitWidth", Canonical: CapSetEnergyFilterWidth},
		{Concrete: "IFCDoAlignZeroLoss", Canonical: CapAlignEnergyFilterZeroLossPeak},
		{Concrete: "IFGetSlitIn", Canonical: CapGetEnergyFilter},
		{Concrete: "IFSetSlitIn", Canonical: CapSetEnergyFilter, RequiresPostWait: true},
		{Concrete: "IFGetEnergyLoss", Canonical: CapGetEnergyFilterOffset},
		{Concrete: "IFSetEnergyLoss", Canonical: CapSetEnergyFilterOffset},
		{Concrete: "IFGetSlitWidth", Canonical: CapGetEnergyFilterWidth},
		{Concrete: "IFSetSlitWidth", Canonical: CapSetEnergyFilterWidth},
		{Concrete: "GT_CenterZLP", Canonical: CapAlignEnergyFilterZeroLossPeak},
	}
}

// negotiateCapabilities probes the configured table against the connected
// host and builds the capability map. It runs once per connection, before
// any capability-gated call; the map is immutable afterward.
//
// Called with c.mu held.
func (c *Connection) negotiateCapabilities() error {
	for _, probe := range c.cfg.probes {
		if _, claimed := c.caps.Load(probe.Canonical); claimed {
			continue
		}

		exists, err := c.hasScriptFunctionLocked(probe.Concrete)
		if err != nil {
			return fmt.Errorf("probe %s: %w", probe.Concrete, err)
		}

		c.logger.Debug("capability probe", "concrete", probe.Concrete, "canonical", probe.Canonical, "exists", exists)

		if exists {
			c.caps.Store(probe.Canonical, Capability{
				Concrete:         probe.Concrete,
				RequiresPostWait: probe.RequiresPostWait,
			})
		}
	}

	if cp, ok := c.caps.Load(CapSetEnergyFilter); ok && cp.RequiresPostWait {
		c.waitForFilter = waitForFilterClause
	}

	return nil
}

// hasScriptFunctionLocked is the negotiation-time variant of
// hasScriptFunction; it must run under c.mu because Connect still holds the
// lock while probing.
func (c *Connection) hasScriptFunctionLocked(name string) (bool, error) {
	source := fmt.Sprintf(`if ( DoesFunctionExist("%s") ) { Exit(1.0); } else { Exit(-1.0); }`, name)
	req := newScriptRequest(source, false)

	resp, err := c.exchangeLocked(req, &scriptDoubleShape)
	if err != nil {
		return false, err
	}

	return resp.DoubleArgs[0] > 0, nil
}

// Capability returns the resolved capability for a canonical name. The
// boolean is false when the connected host does not support the capability;
// callers must treat that as "unsupported", not as an error.
func (c *Connection) Capability(canonical string) (Capability, bool) {
	return c.caps.Load(canonical)
}

// GetEnergyFilter reports whether the filter slit is in (1.0) or out (-1.0).
func (c *Connection) GetEnergyFilter() (Result, error) {
	cp, ok := c.caps.Load(CapGetEnergyFilter)
	if !ok {
		return unsupportedResult(), nil
	}

	source := fmt.Sprintf("if ( %s() ) { Exit(1.0); } else { Exit(-1.0); }", cp.Concrete)

	val, err := c.GetDoubleScript(source)
	if err != nil {
		return Result{}, err
	}

	return okResult(val), nil
}

// SetEnergyFilter moves the filter slit in or out. When the resolved variant
// requires it, a settle wait is appended so the call does not return before
// the filter is stable.
func (c *Connection) SetEnergyFilter(in bool) (Result, error) {
	cp, ok := c.caps.Load(CapSetEnergyFilter)
	if !ok {
		return unsupportedResult(), nil
	}

	arg := 0
	if in {
		arg = 1
	}
	source := fmt.Sprintf("%s(%d); %s", cp.Concrete, arg, c.waitForFilter)

	return c.sendScriptResult(source)
}

// GetEnergyFilterWidth returns the slit width in eV.
func (c *Connection) GetEnergyFilterWidth() (Result, error) {
	cp, ok := c.caps.Load(CapGetEnergyFilterWidth)
	if !ok {
		return unsupportedResult(), nil
	}

	val, err := c.GetDoubleScript(fmt.Sprintf("Exit(%s())", cp.Concrete))
	if err != nil {
		return Result{}, err
	}

	return okResult(val), nil
}

// SetEnergyFilterWidth sets the slit width in eV.
func (c *Connection) SetEnergyFilterWidth(width float64) (Result, error) {
	cp, ok := c.caps.Load(CapSetEnergyFilterWidth)
	if !ok {
		return unsupportedResult(), nil
	}

	source := fmt.Sprintf("if ( %s(%f) ) { Exit(1.0); } else { Exit(-1.0); }", cp.Concrete, width)

	return c.sendScriptResult(source)
}

// GetEnergyFilterOffset returns the filter energy loss offset in eV.
func (c *Connection) GetEnergyFilterOffset() (Result, error) {
	cp, ok := c.caps.Load(CapGetEnergyFilterOffset)
	if !ok {
		return unsupportedResult(), nil
	}

	val, err := c.GetDoubleScript(fmt.Sprintf("Exit(%s())", cp.Concrete))
	if err != nil {
		return Result{}, err
	}

	return okResult(val), nil
}

// SetEnergyFilterOffset sets the filter energy loss offset in eV.
func (c *Connection) SetEnergyFilterOffset(offset float64) (Result, error) {
	cp, ok := c.caps.Load(CapSetEnergyFilterOffset)
	if !ok {
		return unsupportedResult(), nil
	}

	source := fmt.Sprintf("if ( %s(%f) ) { Exit(1.0); } else { Exit(-1.0); }", cp.Concrete, offset)

	return c.sendScriptResult(source)
}

// AlignEnergyFilterZeroLossPeak centers the zero-loss peak. The host signals
// success through the script exit value.
func (c *Connection) AlignEnergyFilterZeroLossPeak() (Result, error) {
	cp, ok := c.caps.Load(CapAlignEnergyFilterZeroLossPeak)
	if !ok {
		return unsupportedResult(), nil
	}

	source := fmt.Sprintf("if ( %s() ) { %s Exit(1.0); } else { Exit(-1.0); }", cp.Concrete, c.waitForFilter)

	val, err := c.GetDoubleScript(source)
	if err != nil {
		return Result{}, err
	}

	return okResult(val), nil
}

// sendScriptResult runs a value-less script and converts the remote status
// long into a Result: positive status means the host failed the call.
func (c *Connection) sendScriptResult(source string) (Result, error) {
	status, err := c.SendScript(source)
	if err != nil {
		return Result{}, err
	}
	if status > 0 {
		return remoteErrorResult(status), nil
	}

	return okResult(float64(status)), nil
}
