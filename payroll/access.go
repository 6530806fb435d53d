package payroll

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/warp/payroll-stream/generic"
)

// Role is decided once per call by Classify.
type Role string

const (
	RoleManager      Role = "manager"
	RoleEmployee     Role = "employee"
	RoleUnauthorized Role = "unauthorized"
)

type Operation string

const (
	OpRegister       Operation = "register"
	OpTerminate      Operation = "terminate"
	OpSettleFinal    Operation = "settle_final"
	OpInspect        Operation = "inspect"
	OpFundTreasury   Operation = "fund_treasury"
	OpWithdraw       Operation = "withdraw"
	OpSwitchCurrency Operation = "switch_currency"
	OpReadOwnInfo    Operation = "read_own_info"
)

// Classify is a pure function of the caller, the record being acted on and
// the designated manager. The manager is never classified as an employee,
// and only an Active record makes its owner an employee.
func Classify(caller, target, manager generic.Identity, rec *generic.EmploymentRecord) Role {
	switch {
	case caller.IsZero():
		return RoleUnauthorized
	case caller == manager:
		return RoleManager
	case caller == target && rec.IsActive():
		return RoleEmployee
	default:
		return RoleUnauthorized
	}
}

const accessModel = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.act == p.act
`

var defaultPolicy = []struct {
	role Role
	op   Operation
}{
	{RoleManager, OpRegister},
	{RoleManager, OpTerminate},
	{RoleManager, OpSettleFinal},
	{RoleManager, OpInspect},
	{RoleManager, OpFundTreasury},
	{RoleEmployee, OpWithdraw},
	{RoleEmployee, OpSwitchCurrency},
	{RoleEmployee, OpReadOwnInfo},
}

// Gate authorizes operations against the role/operation matrix.
type Gate struct {
	manager  generic.Identity
	enforcer *casbin.Enforcer
}

func NewGate(manager generic.Identity) (*Gate, error) {
	if manager.IsZero() {
		return nil, fmt.Errorf("gate: manager identity: %w", generic.ErrInvalidIdentity)
	}

	m, err := model.NewModelFromString(accessModel)
	if err != nil {
		return nil, fmt.Errorf("gate: load model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("gate: create enforcer: %w", err)
	}
	for _, p := range defaultPolicy {
		if _, err := enforcer.AddPolicy(string(p.role), string(p.op)); err != nil {
			return nil, fmt.Errorf("gate: add policy %s/%s: %w", p.role, p.op, err)
		}
	}

	return &Gate{manager: manager, enforcer: enforcer}, nil
}

func (g *Gate) Manager() generic.Identity { return g.manager }

// Authorize classifies caller and checks that its role may perform op.
func (g *Gate) Authorize(caller, target generic.Identity, rec *generic.EmploymentRecord, op Operation) (Role, error) {
	role := Classify(caller, target, g.manager, rec)
	if err := g.Allow(role, op); err != nil {
		return role, fmt.Errorf("%s as %s: %w", caller, role, err)
	}
	return role, nil
}

// Allow checks the matrix for an already classified role.
func (g *Gate) Allow(role Role, op Operation) error {
	ok, err := g.enforcer.Enforce(string(role), string(op))
	if err != nil {
		return fmt.Errorf("enforce %s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", op, generic.ErrNotAuthorized)
	}
	return nil
}
