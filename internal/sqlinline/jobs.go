package sqlinline

const QCreateTrackedJobsTable = `--sql 7c1e0f52-93a4-4d0b-b2c6-1f8e5a3d6b20
create table if not exists tracked_jobs (
    request_id  text primary key,
    position    int not null,
    kind        text not null,
    status      text not null,
    record      jsonb not null,
    created_at  timestamptz not null,
    saved_at    timestamptz not null default now()
);
`

const QDeleteTrackedJobs = `--sql 3b9d2a71-5e08-4f6c-8a1d-c4e27f90b513
delete from tracked_jobs;
`

const QInsertTrackedJob = `--sql e5a04c88-1b7f-4c2e-9d63-0a8f7b2e4c19
insert into tracked_jobs(request_id, position, kind, status, record, created_at)
values ($1::text, $2::int, $3::text, $4::text, $5::jsonb, $6::timestamptz);
`

const QSelectTrackedJobs = `--sql 9f2c6d14-7a3b-4e85-b1f0-5d8c2e6a7b34
select request_id, record
from tracked_jobs
order by position asc;
`
