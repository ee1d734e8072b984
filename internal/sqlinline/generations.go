package sqlinline

const QInsertGeneration = `--sql 3f0c7b1a-9d42-4e8a-b5c6-7d1e2f3a4b5c
insert into generations(id, mode, emotion, style, status, error_kind, elapsed_ms, poll_count, created_at)
values ($1::uuid, $2::text, $3::text, $4::text, $5::text, nullif($6::text, ''), $7::bigint, $8::int, now())
returning id;
`

const QRecentGenerations = `--sql 8a2d4c6e-1b3f-4a5d-9e7c-0f1a2b3c4d5e
select id, mode, emotion, style, status, coalesce(error_kind, ''), elapsed_ms, poll_count, created_at
from generations
order by created_at desc
limit $1::int;
`
