// Package combat resolves actions and spells and runs encounters: initiative,
// the turn and round state machine, termination, and the structured log.
package combat

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/combatsim/internal/game/buff"
	"github.com/cory-johannsen/combatsim/internal/game/combatant"
	"github.com/cory-johannsen/combatsim/internal/game/dice"
	"github.com/cory-johannsen/combatsim/internal/game/ruleset"
)

// Result kinds.
const (
	KindAttack      = "attack"
	KindSpecial     = "special"
	KindMultiattack = "multiattack"
	KindSpell       = "spell"
	KindDefend      = "defend"
	KindWait        = "wait"
)

// Resolver turns an actor, an action or spell, and targets into numeric
// outcomes and applies them to the targets. It is owned by one encounter.
type Resolver struct {
	roller *dice.Roller
	conc   *buff.Concentration
	logger *zap.Logger
}

// NewResolver returns a Resolver drawing from roller and recording
// concentration in conc.
//
// Precondition: roller and conc must be non-nil.
func NewResolver(roller *dice.Roller, conc *buff.Concentration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{roller: roller, conc: conc, logger: logger}
}

type toHit struct {
	natural  int
	total    int
	hit      bool
	critical bool
	fumble   bool
}

// rollToHit rolls d20 + bonus + the attacker's attack buffs against the
// target's AC plus its AC buffs. A natural 20 always hits and is critical;
// a natural 1 always misses.
func (r *Resolver) rollToHit(attacker, target *combatant.Combatant, bonus int) toHit {
	nat := r.roller.D20("attack")
	total := nat + bonus + attacker.Buffs.TotalBonus(ruleset.AttackRolls, r.roller)
	ac := target.AC + target.Buffs.TotalBonus(ruleset.ArmorClass, r.roller)
	out := toHit{natural: nat, total: total}
	switch nat {
	case 20:
		out.hit, out.critical = true, true
	case 1:
		out.fumble = true
	default:
		out.hit = total >= ac
	}
	return out
}

// rollDamage rolls expr (dice doubled on a critical), adds mod and the
// attacker's damage buffs, and clamps the result to >= 0.
func (r *Resolver) rollDamage(attacker *combatant.Combatant, expr dice.Expression, mod int, critical bool) int {
	if critical {
		expr = expr.Scaled(2)
	}
	total := r.roller.Roll(expr).Total() + mod
	total += attacker.Buffs.TotalBonus(ruleset.DamageRolls, r.roller)
	return max(total, 0)
}

// weaponMod is the ability modifier added to weapon damage: only when the
// dice expression carries no literal modifier of its own.
func weaponMod(actor *combatant.Combatant, a *ruleset.Action, expr dice.Expression) int {
	if expr.HasModifier {
		return 0
	}
	return actor.DamageMod(a.WeaponClass)
}

// rollSave rolls target's saving throw of ability against dc.
func (r *Resolver) rollSave(target *combatant.Combatant, ability ruleset.Ability, dc int) (roll int, success bool) {
	roll = r.roller.D20("save") + target.SaveBonus(ability) + target.Buffs.TotalBonus(ruleset.SavingThrows, r.roller)
	return roll, roll >= dc
}

func living(targets []*combatant.Combatant) []*combatant.Combatant {
	out := make([]*combatant.Combatant, 0, len(targets))
	for _, t := range targets {
		if t != nil && t.IsAlive() {
			out = append(out, t)
		}
	}
	return out
}

func names(cs []*combatant.Combatant) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

// ResolveAction performs attack or special action a against targets.
// Single-target actions use the first living target.
//
// Postcondition: target hp, the actor's special uses, and nothing else are
// mutated; an unsuccessful Result has no side effects.
func (r *Resolver) ResolveAction(actor *combatant.Combatant, a *ruleset.Action, targets []*combatant.Combatant) Result {
	kind := KindAttack
	if a.Type == ruleset.ActionSpecial {
		kind = KindSpecial
	}
	live := living(targets)
	if len(live) == 0 {
		return failure(a.Name, kind, joinNames(names(targets)), ReasonNoTarget)
	}
	if a.Type == ruleset.ActionSpecial && !actor.SpecialAvailable(a) {
		return failure(a.Name, kind, live[0].Name, ReasonUnavailable)
	}

	var strikes []Strike
	if a.IsMultiattack() {
		strikes = PlanMultiattack(a.Description, actor.AttackActions())
		if len(strikes) == 0 {
			return failure(a.Name, KindMultiattack, live[0].Name, ReasonNoAttacks)
		}
	}
	if a.Type == ruleset.ActionSpecial {
		actor.SpendSpecial(a)
	}

	switch {
	case a.IsMultiattack():
		return r.multiattack(actor, a, strikes, live[0])
	case a.IsSaveBased():
		expr, _ := a.DamageExpr()
		dmg := r.rollDamage(actor, expr, 0, false)
		if !a.AreaEffect {
			live = live[:1]
		}
		res := r.applySave(actor, live, a.SaveType, a.SaveDC, dmg, true)
		res.Action, res.Kind, res.DamageType, res.AreaEffect = a.Name, kind, a.DamageType, a.AreaEffect
		return res
	case !a.IsDamaging():
		return Result{Action: a.Name, Kind: kind, Target: live[0].Name, Success: true, Reason: ReasonNoEffect}
	case a.AreaEffect:
		res := Result{Action: a.Name, Kind: kind, Success: true, AreaEffect: true, DamageType: a.DamageType}
		anyHit := false
		for _, t := range live {
			sub := r.weaponAttack(actor, a, t)
			res.TargetResults = append(res.TargetResults, TargetResult{
				Target: t.Name, Hit: sub.Hit, Critical: sub.Critical, Fumble: sub.Fumble,
				AttackRoll: sub.AttackRoll, AttackTotal: sub.AttackTotal, Damage: sub.Damage,
			})
			res.Damage += sub.Damage
			anyHit = anyHit || *sub.Hit
		}
		res.Hit = boolPtr(anyHit)
		res.Target = joinNames(names(live))
		return res
	default:
		res := r.weaponAttack(actor, a, live[0])
		res.Kind = kind
		return res
	}
}

// weaponAttack resolves one weapon attack roll and its damage.
func (r *Resolver) weaponAttack(actor *combatant.Combatant, a *ruleset.Action, target *combatant.Combatant) Result {
	roll := r.rollToHit(actor, target, actor.ActionHitBonus(a))
	res := Result{
		Action: a.Name, Kind: KindAttack, Target: target.Name, Success: true,
		Hit: boolPtr(roll.hit), Critical: roll.critical, Fumble: roll.fumble,
		AttackRoll: roll.natural, AttackTotal: roll.total, DamageType: a.DamageType,
	}
	if roll.hit {
		expr, _ := a.DamageExpr()
		res.Damage = target.ApplyDamage(r.rollDamage(actor, expr, weaponMod(actor, a, expr), roll.critical))
	}
	r.logger.Debug("attack",
		zap.String("actor", actor.Name),
		zap.String("action", a.Name),
		zap.String("target", target.Name),
		zap.Int("roll", roll.natural),
		zap.Int("total", roll.total),
		zap.Bool("hit", roll.hit),
		zap.Int("damage", res.Damage),
	)
	return res
}

// applySave makes every target save against dc. dmg is applied in full on
// a failed save, halved on success when half is set, and not at all otherwise.
func (r *Resolver) applySave(actor *combatant.Combatant, targets []*combatant.Combatant, ability ruleset.Ability, dc, dmg int, half bool) Result {
	res := Result{Success: true, SaveDC: dc}
	for _, t := range targets {
		roll, saved := r.rollSave(t, ability, dc)
		applied := dmg
		if saved {
			applied = 0
			if half {
				applied = dmg / 2
			}
		}
		applied = t.ApplyDamage(applied)
		res.Damage += applied
		res.TargetResults = append(res.TargetResults, TargetResult{
			Target: t.Name, SaveSuccess: boolPtr(saved), SaveRoll: roll, Damage: applied,
		})
	}
	if len(targets) == 1 {
		res.SaveSuccess = res.TargetResults[0].SaveSuccess
		res.SaveRoll = res.TargetResults[0].SaveRoll
	}
	res.Target = joinNames(names(targets))
	r.logger.Debug("save effect",
		zap.String("actor", actor.Name),
		zap.Int("dc", dc),
		zap.Int("damage", res.Damage),
		zap.Int("targets", len(targets)),
	)
	return res
}
