package pipeline

import (
	"context"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"shopmigrate/internal/identity"
	"shopmigrate/internal/legacy"
	"shopmigrate/internal/normalize"
	"shopmigrate/internal/target"
)

// placeholderCredential marks migrated accounts. The legacy store holds no
// credentials, so every account requires a reset before first login.
const placeholderCredential = "!migrated-needs-password-reset!"

// transformUser maps a legacy user row onto the target model. dateDefaulted
// reports that the registration date could not be parsed and was replaced
// with now.
func transformUser(u legacy.User, now time.Time) (user target.User, dateDefaulted bool) {
	reg, ok := normalize.ParseDate(u.RegistrationDateStr, normalize.RegistrationDateLayouts)
	if !ok {
		reg = now
	}
	return target.User{
		Username:         u.Username,
		Email:            u.Email,
		FullName:         u.FullName,
		HashedPassword:   placeholderCredential,
		IsActive:         true,
		IsSuperuser:      false,
		RegistrationDate: reg,
		PhoneNumber:      u.PhoneNumberStr,
	}, !ok
}

// migrateUsers moves legacy accounts and splits their combined address
// strings into the addresses table. An address row is only written for users
// created in this run; adopted users keep whatever a prior run gave them.
func (r *Runner) migrateUsers(ctx context.Context) (Stats, error) {
	var st Stats

	if n, err := r.src.CountUsers(ctx); err == nil {
		r.log.WithField("stage", "users").Infof("migrating %s legacy users", humanize.Comma(n))
	}

	b := newBatcher(r.store, r.batchSize, "users", r.log)
	err := r.src.ForEachUser(ctx, func(u legacy.User) error {
		st.Processed++
		key := strconv.FormatInt(u.ID, 10)

		row, dateDefaulted := transformUser(u, r.now())
		if dateDefaulted {
			st.Warnings++
			r.log.WithField("legacy_id", u.ID).
				WithField("value", u.RegistrationDateStr).
				Warn("unparseable registration date, defaulting to now")
		}

		var outcome identity.Outcome
		ok, err := b.do(ctx, key, func(tx target.Tx) error {
			uid, out, err := r.ids.ResolveOrCreate(identity.KindUser, key,
				func() (int64, error) {
					return tx.InsertUser(ctx, &row)
				},
				func() (int64, bool, error) {
					if id, found, err := tx.FindUserByUsername(ctx, u.Username); err != nil || found {
						return id, found, err
					}
					return tx.FindUserByEmail(ctx, u.Email)
				})
			if err != nil {
				return err
			}
			outcome = out

			if out != identity.Created {
				return nil
			}
			addr := normalize.ParseAddress(u.AddressCombined)
			if addr.Empty() {
				if u.AddressCombined != "" {
					st.Warnings++
					r.log.WithField("legacy_id", u.ID).
						WithField("value", u.AddressCombined).
						Warn("address string yielded no components, skipping address")
				}
				return nil
			}
			_, err = tx.InsertAddress(ctx, &target.Address{
				UserID:            uid,
				Street:            addr.Street,
				City:              addr.City,
				State:             addr.State,
				ZipCode:           addr.ZipCode,
				Country:           addr.Country,
				IsDefaultShipping: true,
				IsDefaultBilling:  true,
			})
			if err == nil {
				st.Addresses++
			}
			return err
		})
		if err != nil {
			return err
		}
		if !ok {
			st.Skipped++
			return nil
		}
		switch outcome {
		case identity.Created:
			st.Created++
		case identity.Adopted:
			st.Adopted++
		}
		return nil
	})
	if err != nil {
		return st, err
	}
	b.flush(ctx)

	r.log.WithField("stage", "users").
		WithField("addresses_created", st.Addresses).
		Debug("address breakdown")
	return st, nil
}
