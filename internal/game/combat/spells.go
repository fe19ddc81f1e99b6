package combat

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/combatsim/internal/game/buff"
	"github.com/cory-johannsen/combatsim/internal/game/combatant"
	"github.com/cory-johannsen/combatsim/internal/game/ruleset"
)

// CastSpell casts s from caster at targets. Leveled spells need a free slot
// of their level; when none is left the result is a failure with reason
// ReasonNoSlot and nothing is mutated. Otherwise one slot is spent and the
// spell resolves by its branch: buff, healing, attack roll, saving throw,
// no-check, or utility.
func (r *Resolver) CastSpell(caster *combatant.Combatant, s *ruleset.Spell, targets []*combatant.Combatant) Result {
	live := living(targets)
	target := joinNames(names(live))
	if !caster.HasSlot(s.Level) {
		res := failure(s.Name, KindSpell, target, ReasonNoSlot)
		res.SlotLevel = s.Level
		return res
	}
	if len(live) == 0 {
		return failure(s.Name, KindSpell, joinNames(names(targets)), ReasonNoTarget)
	}
	if !s.AreaEffect && s.Branch() != ruleset.BranchBuff {
		live = live[:1]
		target = live[0].Name
	}
	caster.UseSlot(s.Level)

	var res Result
	switch s.Branch() {
	case ruleset.BranchBuff:
		res = r.castBuff(caster, s, live)
	case ruleset.BranchHealing:
		res = r.castHealing(caster, s, live)
	case ruleset.BranchAttack:
		res = r.castAttack(caster, s, live)
	case ruleset.BranchSave:
		expr, _ := s.DiceFor(caster.Level)
		dmg := r.rollDamage(caster, expr, r.spellMod(caster, s), false)
		res = r.applySave(caster, live, s.SaveType, caster.SpellSaveDC(), dmg, s.HalfDamageOnSave())
	case ruleset.BranchNoCheck:
		res = r.castNoCheck(caster, s, live)
	default:
		res = Result{Success: true, Reason: ReasonNoEffect}
	}
	res.Action, res.Kind, res.SlotLevel = s.Name, KindSpell, s.Level
	res.AreaEffect = s.AreaEffect
	if res.Target == "" {
		res.Target = target
	}
	if s.IsDamaging() {
		res.DamageType = s.DamageType
	}
	r.logger.Debug("cast",
		zap.String("caster", caster.Name),
		zap.String("spell", s.Name),
		zap.String("branch", s.Branch().String()),
		zap.String("target", res.Target),
	)
	return res
}

func (r *Resolver) spellMod(caster *combatant.Combatant, s *ruleset.Spell) int {
	if s.AddsAbilityModifier() {
		return caster.SpellcastingMod()
	}
	return 0
}

// castBuff gives every target its own Buff instance so durations tick
// independently. A concentration buff first ends whatever the caster was
// concentrating on, on every holder.
func (r *Resolver) castBuff(caster *combatant.Combatant, s *ruleset.Spell, targets []*combatant.Combatant) Result {
	if s.Concentration {
		r.conc.End(caster.ID)
	}
	var holders []*buff.Ledger
	var applied []string
	for _, t := range targets {
		if t.Buffs == nil {
			continue
		}
		t.Buffs.Add(buff.New(s.BuffData, caster.ID, caster.Name, s.Concentration))
		holders = append(holders, t.Buffs)
		applied = append(applied, t.Name)
	}
	if s.Concentration && len(holders) > 0 {
		r.conc.Begin(caster.ID, s.BuffData.Name, holders)
	}
	res := Result{Success: len(applied) > 0, BuffTargets: applied, Target: joinNames(applied)}
	if len(applied) > 0 {
		res.BuffApplied = s.BuffData.Name
	} else {
		res.Reason = ReasonNoTarget
		res.Target = joinNames(names(targets))
	}
	return res
}

// castHealing rolls healing per target and reports what was actually
// restored after clamping to max hp.
func (r *Resolver) castHealing(caster *combatant.Combatant, s *ruleset.Spell, targets []*combatant.Combatant) Result {
	expr, _ := s.DiceFor(caster.Level)
	mod := r.spellMod(caster, s)
	res := Result{Success: true}
	for _, t := range targets {
		amount := max(r.roller.Roll(expr).Total()+mod, 0)
		restored := t.Heal(amount)
		res.Healing += restored
		if s.AreaEffect {
			res.TargetResults = append(res.TargetResults, TargetResult{Target: t.Name, Healing: restored})
		}
	}
	return res
}

func (r *Resolver) castAttack(caster *combatant.Combatant, s *ruleset.Spell, targets []*combatant.Combatant) Result {
	expr, _ := s.DiceFor(caster.Level)
	mod := r.spellMod(caster, s)
	res := Result{Success: true}
	anyHit := false
	for _, t := range targets {
		roll := r.rollToHit(caster, t, caster.SpellAttackBonus())
		dmg := 0
		if roll.hit {
			dmg = t.ApplyDamage(r.rollDamage(caster, expr, mod, roll.critical))
		}
		res.Damage += dmg
		anyHit = anyHit || roll.hit
		if len(targets) == 1 {
			res.Critical, res.Fumble = roll.critical, roll.fumble
			res.AttackRoll, res.AttackTotal = roll.natural, roll.total
			continue
		}
		res.TargetResults = append(res.TargetResults, TargetResult{
			Target: t.Name, Hit: boolPtr(roll.hit), Critical: roll.critical, Fumble: roll.fumble,
			AttackRoll: roll.natural, AttackTotal: roll.total, Damage: dmg,
		})
	}
	res.Hit = boolPtr(anyHit)
	return res
}

// castNoCheck rolls damage once and applies it to every target.
func (r *Resolver) castNoCheck(caster *combatant.Combatant, s *ruleset.Spell, targets []*combatant.Combatant) Result {
	expr, _ := s.DiceFor(caster.Level)
	dmg := r.rollDamage(caster, expr, r.spellMod(caster, s), false)
	res := Result{Success: true, Hit: boolPtr(true)}
	for _, t := range targets {
		applied := t.ApplyDamage(dmg)
		res.Damage += applied
		if len(targets) > 1 {
			res.TargetResults = append(res.TargetResults, TargetResult{Target: t.Name, Hit: boolPtr(true), Damage: applied})
		}
	}
	return res
}
