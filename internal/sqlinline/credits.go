package sqlinline

const QRefundCredits = `--sql b09f4e61-7a2c-4853-9d6b-0e5c8f13a247
with refunded as (
    update users
    set credits = credits + $2::int, updated_at = now()
    where id = $1::uuid
    returning id
)
insert into credit_events (id, user_id, job_id, delta, reason, metadata, created_at)
select gen_random_uuid(), id, $3::uuid, $2::int, $4::text, coalesce($5::jsonb, '{}'::jsonb), now()
from refunded;
`
