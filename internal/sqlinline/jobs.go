package sqlinline

const QClaimNextJob = `--sql 7c2f1a64-9b3e-4d8a-b1c5-2e6f4a8d0c93
with next_job as (
    select id
    from jobs
    where status = 'pending'
    order by created_at asc
    for update skip locked
    limit 1
),
claimed as (
    update jobs
    set status = 'processing', attempts = attempts + 1, updated_at = now()
    where id in (select id from next_job)
    returning id, user_id, type, status, input_json, result_json, credits_used, attempts, error_message, created_at, updated_at
)
select * from claimed;
`

const QClaimJobByID = `--sql 1d9e6b27-53af-4c01-8e2d-7b40c9f5a614
update jobs
set status = 'processing', attempts = attempts + 1, updated_at = now()
where id = $1::uuid and status = 'pending'
returning id, user_id, type, status, input_json, result_json, credits_used, attempts, error_message, created_at, updated_at;
`

const QSelectJobByID = `--sql 9a41f8d2-0c67-4b3e-a5d9-8e12b7f4c036
select id, user_id, type, status, input_json, result_json, credits_used, attempts, error_message, created_at, updated_at
from jobs
where id = $1::uuid
limit 1;
`

const QCompleteJob = `--sql 5b7d30e9-2f14-48c6-9a0b-d83e6c1f7a52
update jobs
set status = 'completed', result_json = $2::jsonb, error_message = '', updated_at = now()
where id = $1::uuid and status = 'processing';
`

const QFailJob = `--sql e3a85c17-6d09-4f2b-8c4e-1b9f7d20a468
update jobs
set status = 'failed', error_message = $2::text, updated_at = now()
where id = $1::uuid and status = 'processing';
`

const QCancelJob = `--sql 48c6e2f0-b15a-4d97-83e1-6a0d9c42b785
update jobs
set status = 'cancelled', error_message = $2::text, updated_at = now()
where id = $1::uuid and status = 'processing';
`
